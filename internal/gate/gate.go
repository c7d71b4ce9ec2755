// Package gate вычисляет домашний маршрут фронтенда для текущей личности.
// Это подсказка для навигации, а не граница безопасности: настоящие проверки
// ролей выполняются на сервере в middleware.
package gate

import "github.com/Snoopyx126/Atelier4-sub002/internal/model"

// Маршруты фронтенда.
const (
	RoutePublic = "/"
	RoutePro    = "/espace-pro"
	RouteAdmin  = "/admin"
)

// HomeRoute возвращает единственный домашний маршрут для роли.
// Анонимный вызывающий (пустая роль) отправляется на публичную страницу.
func HomeRoute(role model.Role) string {
	switch role {
	case model.RoleAdmin:
		return RouteAdmin
	case model.RoleClient, model.RoleManager:
		return RoutePro
	default:
		return RoutePublic
	}
}

// Resolve возвращает маршрут, на который должен попасть вызывающий,
// запросивший target: либо сам target, либо редирект на домашний маршрут.
func Resolve(role model.Role, target string) string {
	switch target {
	case RouteAdmin:
		if role != model.RoleAdmin {
			return HomeRoute(role)
		}
	case RoutePro:
		if role == "" {
			return RoutePublic
		}
	}
	return target
}
