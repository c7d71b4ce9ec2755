// Package service реализует бизнес-логику сервиса ателье.
package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Snoopyx126/Atelier4-sub002/internal/mailer"
	"github.com/Snoopyx126/Atelier4-sub002/internal/model"
	"github.com/Snoopyx126/Atelier4-sub002/internal/repository"
	"github.com/Snoopyx126/Atelier4-sub002/internal/validation"
)

// ErrValidation возвращается при отсутствующих или некорректных полях запроса.
var (
	ErrValidation = errors.New("invalid request")
	// ErrInvalidCredentials возвращается при неверном email или пароле.
	// Текст намеренно одинаков для обоих случаев, чтобы не раскрывать
	// существование учётной записи.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountNotVerified возвращается при входе до ручной проверки учётной записи.
	ErrAccountNotVerified = errors.New("account not verified")
	// ErrReauthRequired возвращается при смене email или пароля без подтверждения текущим паролем.
	ErrReauthRequired = errors.New("current password required")
	// ErrOwnerNotFound возвращается, если владелец монтажа или фактуры не существует.
	ErrOwnerNotFound = errors.New("owner not found")
	// ErrStatusTransition возвращается при попытке перевести монтаж назад по циклу без force.
	ErrStatusTransition = errors.New("backward status transition requires force")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateAccount(ctx context.Context, a *model.Account) (int64, error)
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	GetAccountByID(ctx context.Context, id int64) (*model.Account, error)
	ListAccounts(ctx context.Context) ([]model.Account, error)
	GetAccountNames(ctx context.Context, ids []int64) ([]string, error)
	UpdateAccount(ctx context.Context, id int64, upd repository.AccountUpdate) (*model.Account, error)
	SetAccountVerified(ctx context.Context, id int64, verified bool) error
	CreateOrder(ctx context.Context, o *model.Order) (*model.Order, error)
	GetOrderByID(ctx context.Context, id int64) (*model.Order, error)
	UpdateOrder(ctx context.Context, id int64, upd repository.OrderUpdate) (*model.Order, error)
	DeleteOrder(ctx context.Context, id int64) error
	ListOrdersByOwner(ctx context.Context, ownerID int64) ([]model.Order, error)
	ListOrders(ctx context.Context) ([]model.Order, error)
	CreateInvoice(ctx context.Context, inv *model.Invoice) (*model.Invoice, error)
	ListInvoicesByOwner(ctx context.Context, ownerID int64) ([]model.Invoice, error)
	ListInvoices(ctx context.Context) ([]model.Invoice, error)
}

// Mailer описывает контракт отправки писем, используемый сервисом.
type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// Service содержит бизнес-логику сервиса ателье.
type Service struct {
	repo       Repository
	mailer     Mailer
	logger     *zap.Logger
	backoffice string
}

// NewService создаёт новый сервис с указанным репозиторием и почтовым клиентом.
func NewService(repo Repository, m Mailer, logger *zap.Logger, backoffice string) *Service {
	return &Service{
		repo:       repo,
		mailer:     m,
		logger:     logger,
		backoffice: backoffice,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// notify отправляет письмо в режиме «лучшее из возможного»: сбой доставки
// логируется и никогда не откатывает уже сохранённые данные.
func (s *Service) notify(ctx context.Context, msg mailer.Message) {
	if s.mailer == nil {
		return
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Warn("notification delivery failed",
			zap.Error(err),
			zap.String("subject", msg.Subject),
		)
	}
}

// Document описывает загруженный документ для проверки личности (Kbis).
type Document struct {
	Filename string
	Data     []byte
}

// RegisterInput содержит поля анкеты регистрации оптика.
type RegisterInput struct {
	Email       string
	Password    string
	CompanyName string
	SIRET       string
	Phone       string
	Address     string
	ZipCity     string
}

// Register создаёт новую непроверенную учётную запись клиента и передаёт
// документ о регистрации в бэк-офис на ручную проверку.
func (s *Service) Register(ctx context.Context, in RegisterInput, doc *Document) error {
	if in.Email == "" || in.Password == "" || in.CompanyName == "" || in.SIRET == "" {
		return fmt.Errorf("%w: email, password, company name and SIRET are required", ErrValidation)
	}
	if !validation.IsValidEmail(in.Email) {
		return fmt.Errorf("%w: malformed email", ErrValidation)
	}
	if !validation.IsValidSIRET(in.SIRET) {
		return fmt.Errorf("%w: malformed SIRET", ErrValidation)
	}
	if doc == nil || len(doc.Data) == 0 {
		return fmt.Errorf("%w: identity document is required", ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	account := &model.Account{
		Email:        in.Email,
		PasswordHash: hash,
		CompanyName:  in.CompanyName,
		SIRET:        in.SIRET,
		Phone:        in.Phone,
		Address:      in.Address,
		ZipCity:      in.ZipCity,
		Role:         model.RoleClient,
		Verified:     false,
	}

	if _, err := s.repo.CreateAccount(ctx, account); err != nil {
		return err
	}

	s.notify(ctx, mailer.Message{
		To:      []string{s.backoffice},
		Subject: "Nouvelle inscription professionnelle : " + in.CompanyName,
		HTML: fmt.Sprintf(
			"<p>Nouvelle demande d'accès à l'espace pro.</p><ul><li>Société : %s</li><li>Email : %s</li><li>SIRET : %s</li><li>Téléphone : %s</li></ul><p>Le document d'identité est en pièce jointe.</p>",
			html.EscapeString(in.CompanyName), html.EscapeString(in.Email),
			html.EscapeString(in.SIRET), html.EscapeString(in.Phone),
		),
		Attachments: []mailer.Attachment{mailer.EncodeAttachment(doc.Filename, doc.Data)},
	})

	return nil
}

// Authenticate проверяет email и пароль и возвращает проекцию учётной записи.
// Вход запрещён, пока учётная запись не прошла ручную проверку.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*model.AccountView, error) {
	account, err := s.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !account.Verified {
		return nil, ErrAccountNotVerified
	}

	return s.accountView(ctx, account)
}

// GetAccount возвращает проекцию учётной записи по идентификатору.
func (s *Service) GetAccount(ctx context.Context, id int64) (*model.AccountView, error) {
	account, err := s.repo.GetAccountByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.accountView(ctx, account)
}

func (s *Service) accountView(ctx context.Context, account *model.Account) (*model.AccountView, error) {
	var shopNames []string
	if account.Role == model.RoleManager && len(account.Shops) > 0 {
		names, err := s.repo.GetAccountNames(ctx, account.Shops)
		if err != nil {
			return nil, fmt.Errorf("resolve assigned shops: %w", err)
		}
		shopNames = names
	}

	view := account.View(shopNames)
	return &view, nil
}

// ListAccounts возвращает проекции всех учётных записей для административной панели.
func (s *Service) ListAccounts(ctx context.Context) ([]model.AccountView, error) {
	accounts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]model.AccountView, 0, len(accounts))
	for i := range accounts {
		views = append(views, accounts[i].View(nil))
	}
	return views, nil
}

// UpdateProfileInput описывает частичное обновление профиля.
// Нулевой указатель означает «поле не менять».
type UpdateProfileInput struct {
	Email           *string
	NewPassword     *string
	CompanyName     *string
	SIRET           *string
	Phone           *string
	Address         *string
	ZipCity         *string
	CurrentPassword string
}

// UpdateProfile применяет изменения профиля. Смена email или пароля требует
// подтверждения текущим паролем.
func (s *Service) UpdateProfile(ctx context.Context, accountID int64, in UpdateProfileInput) (*model.AccountView, error) {
	sensitive := in.Email != nil || in.NewPassword != nil

	if sensitive {
		if in.CurrentPassword == "" {
			return nil, ErrReauthRequired
		}

		account, err := s.repo.GetAccountByID(ctx, accountID)
		if err != nil {
			return nil, err
		}
		if err := bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(in.CurrentPassword)); err != nil {
			return nil, ErrInvalidCredentials
		}
	}

	if in.Email != nil && !validation.IsValidEmail(*in.Email) {
		return nil, fmt.Errorf("%w: malformed email", ErrValidation)
	}
	if in.SIRET != nil && !validation.IsValidSIRET(*in.SIRET) {
		return nil, fmt.Errorf("%w: malformed SIRET", ErrValidation)
	}
	if in.NewPassword != nil && *in.NewPassword == "" {
		return nil, fmt.Errorf("%w: new password must not be empty", ErrValidation)
	}

	upd := repository.AccountUpdate{
		Email:       in.Email,
		CompanyName: in.CompanyName,
		SIRET:       in.SIRET,
		Phone:       in.Phone,
		Address:     in.Address,
		ZipCity:     in.ZipCity,
	}

	if in.NewPassword != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		upd.PasswordHash = hash
	}

	account, err := s.repo.UpdateAccount(ctx, accountID, upd)
	if err != nil {
		return nil, err
	}

	return s.accountView(ctx, account)
}

// SetVerified выставляет флаг верификации и уведомляет клиента об открытии доступа.
func (s *Service) SetVerified(ctx context.Context, accountID int64, verified bool) error {
	if err := s.repo.SetAccountVerified(ctx, accountID, verified); err != nil {
		return err
	}

	if verified {
		if account, err := s.repo.GetAccountByID(ctx, accountID); err == nil {
			s.notify(ctx, mailer.Message{
				To:      []string{account.Email},
				Subject: "Votre espace pro est ouvert",
				HTML: fmt.Sprintf(
					"<p>Bonjour %s,</p><p>Votre compte professionnel a été validé. Vous pouvez dès à présent déposer vos demandes de montage.</p>",
					html.EscapeString(account.CompanyName),
				),
			})
		}
	}

	return nil
}

// CreateMontageInput содержит поля новой заявки на монтаж.
// Пустые необязательные поля получают значения по умолчанию.
type CreateMontageInput struct {
	OwnerID        int64
	Description    string
	Frame          string
	Reference      string
	Category       string
	GlassTypes     []string
	Urgency        string
	DiamondCutType string
	EngravingCount int
	ShapeChange    bool
	PhotoRef       string
}

// CreateMontage создаёт заявку на монтаж. Владелец обязан существовать;
// название его компании копируется в заявку на момент создания.
// Любая новая заявка начинает цикл со статуса «En attente» независимо от того,
// оформил её клиент или администратор: кто оформил, фиксируется отдельным полем.
func (s *Service) CreateMontage(ctx context.Context, createdBy model.CreatedBy, in CreateMontageInput) (*model.Order, error) {
	if in.Description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrValidation)
	}
	if in.EngravingCount < 0 {
		return nil, fmt.Errorf("%w: engraving count must not be negative", ErrValidation)
	}

	owner, err := s.repo.GetAccountByID(ctx, in.OwnerID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrOwnerNotFound
		}
		return nil, err
	}

	order := &model.Order{
		OwnerID:        owner.ID,
		OwnerName:      owner.CompanyName,
		Description:    in.Description,
		Frame:          in.Frame,
		Reference:      in.Reference,
		Category:       in.Category,
		GlassTypes:     in.GlassTypes,
		Urgency:        in.Urgency,
		DiamondCutType: in.DiamondCutType,
		EngravingCount: in.EngravingCount,
		ShapeChange:    in.ShapeChange,
		PhotoRef:       in.PhotoRef,
		CreatedBy:      createdBy,
		Status:         model.OrderStatusPending,
	}
	if order.Category == "" {
		order.Category = model.DefaultCategory
	}
	if order.Urgency == "" {
		order.Urgency = model.DefaultUrgency
	}
	if order.GlassTypes == nil {
		order.GlassTypes = []string{}
	}

	created, err := s.repo.CreateOrder(ctx, order)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, mailer.Message{
		To:      []string{owner.Email},
		Subject: "Votre demande de montage a bien été enregistrée",
		HTML: fmt.Sprintf(
			"<p>Bonjour %s,</p><p>Votre demande de montage n°%d (%s) a bien été enregistrée. Statut actuel : %s.</p>",
			html.EscapeString(owner.CompanyName), created.ID,
			html.EscapeString(created.Description), created.Status,
		),
	})

	return created, nil
}

// UpdateMontageInput описывает частичное обновление монтажа.
// Нулевой указатель означает «поле не менять»; указатель на пустое значение — записать пустое.
type UpdateMontageInput struct {
	OwnerID        *int64
	Description    *string
	Frame          *string
	Reference      *string
	Category       *string
	GlassTypes     *[]string
	Urgency        *string
	DiamondCutType *string
	EngravingCount *int
	ShapeChange    *bool
	PhotoRef       *string
	Status         *string
	// Force разрешает обратный переход по производственному циклу.
	Force bool
}

// UpdateMontage применяет частичное обновление монтажа. Статус принимается только
// из закрытого перечня, переходы допускаются только вперёд, если не передан force.
// Смена владельца заново разрешает учётную запись и обновляет копию названия компании.
func (s *Service) UpdateMontage(ctx context.Context, orderID int64, in UpdateMontageInput) (*model.Order, error) {
	existing, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	upd := repository.OrderUpdate{
		Description:    in.Description,
		Frame:          in.Frame,
		Reference:      in.Reference,
		Category:       in.Category,
		GlassTypes:     in.GlassTypes,
		Urgency:        in.Urgency,
		DiamondCutType: in.DiamondCutType,
		EngravingCount: in.EngravingCount,
		ShapeChange:    in.ShapeChange,
		PhotoRef:       in.PhotoRef,
	}

	if in.EngravingCount != nil && *in.EngravingCount < 0 {
		return nil, fmt.Errorf("%w: engraving count must not be negative", ErrValidation)
	}

	// Присланный ownerId всегда разрешается заново, даже если он не изменился:
	// это единственный момент, когда копия названия компании синхронизируется.
	var newOwner *model.Account
	if in.OwnerID != nil {
		newOwner, err = s.repo.GetAccountByID(ctx, *in.OwnerID)
		if err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				return nil, ErrOwnerNotFound
			}
			return nil, err
		}
		upd.OwnerID = in.OwnerID
		upd.OwnerName = &newOwner.CompanyName
	}

	statusChanged := false
	if in.Status != nil {
		status := model.OrderStatus(strings.TrimSpace(*in.Status))
		if !model.IsValidOrderStatus(status) {
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, *in.Status)
		}
		if !in.Force && !model.CanTransition(existing.Status, status) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrStatusTransition, existing.Status, status)
		}
		upd.Status = &status
		statusChanged = status != existing.Status
	}

	updated, err := s.repo.UpdateOrder(ctx, orderID, upd)
	if err != nil {
		return nil, err
	}

	if statusChanged {
		owner := newOwner
		if owner == nil {
			owner, err = s.repo.GetAccountByID(ctx, updated.OwnerID)
		}
		if err == nil && owner != nil {
			s.notify(ctx, mailer.Message{
				To:      []string{owner.Email},
				Subject: fmt.Sprintf("Montage n°%d : %s", updated.ID, updated.Status),
				HTML: fmt.Sprintf(
					"<p>Bonjour %s,</p><p>Le statut de votre montage n°%d (%s) est passé à : <b>%s</b>.</p>",
					html.EscapeString(owner.CompanyName), updated.ID,
					html.EscapeString(updated.Description), updated.Status,
				),
			})
		}
	}

	return updated, nil
}

// ListMontages возвращает заявки, видимые вызывающему: администратор видит все
// (или заявки одного владельца при заданном фильтре), остальные — только свои.
func (s *Service) ListMontages(ctx context.Context, callerID int64, callerRole model.Role, ownerFilter *int64) ([]model.Order, error) {
	if callerRole == model.RoleAdmin {
		if ownerFilter != nil {
			return s.repo.ListOrdersByOwner(ctx, *ownerFilter)
		}
		return s.repo.ListOrders(ctx)
	}

	// Не администратор всегда ограничен собственными заявками,
	// каким бы ни был присланный фильтр.
	return s.repo.ListOrdersByOwner(ctx, callerID)
}

// DeleteMontage безвозвратно удаляет заявку на монтаж.
func (s *Service) DeleteMontage(ctx context.Context, orderID int64) error {
	return s.repo.DeleteOrder(ctx, orderID)
}

// CreateInvoiceInput содержит поля новой фактуры. Суммы в сантимах.
type CreateInvoiceInput struct {
	OwnerID       int64
	Number        string
	TotalHTCents  int64
	TotalTTCCents int64
	PaidCents     int64
	PaymentStatus string
	OrderRefs     []string
	Items         []byte
	DocumentURL   string
}

// CreateInvoice создаёт фактуру для существующей учётной записи.
func (s *Service) CreateInvoice(ctx context.Context, in CreateInvoiceInput) (*model.Invoice, error) {
	if in.Number == "" {
		return nil, fmt.Errorf("%w: invoice number is required", ErrValidation)
	}

	if _, err := s.repo.GetAccountByID(ctx, in.OwnerID); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrOwnerNotFound
		}
		return nil, err
	}

	inv := &model.Invoice{
		OwnerID:       in.OwnerID,
		Number:        in.Number,
		TotalHTCents:  in.TotalHTCents,
		TotalTTCCents: in.TotalTTCCents,
		PaidCents:     in.PaidCents,
		PaymentStatus: in.PaymentStatus,
		OrderRefs:     in.OrderRefs,
		Items:         in.Items,
		DocumentURL:   in.DocumentURL,
	}
	if inv.PaymentStatus == "" {
		inv.PaymentStatus = "En attente de paiement"
	}
	if inv.OrderRefs == nil {
		inv.OrderRefs = []string{}
	}

	return s.repo.CreateInvoice(ctx, inv)
}

// ListInvoices возвращает фактуры, видимые вызывающему, по тем же правилам, что и монтажи.
func (s *Service) ListInvoices(ctx context.Context, callerID int64, callerRole model.Role, ownerFilter *int64) ([]model.Invoice, error) {
	if callerRole == model.RoleAdmin {
		if ownerFilter != nil {
			return s.repo.ListInvoicesByOwner(ctx, *ownerFilter)
		}
		return s.repo.ListInvoices(ctx)
	}

	return s.repo.ListInvoicesByOwner(ctx, callerID)
}

// SendContactEmail пересылает сообщение публичной контактной формы в бэк-офис.
// В отличие от уведомлений, сбой здесь возвращается вызывающему: кроме письма
// операция ничего не делает.
func (s *Service) SendContactEmail(ctx context.Context, name, email, message string) error {
	if name == "" || email == "" || message == "" {
		return fmt.Errorf("%w: name, email and message are required", ErrValidation)
	}
	if !validation.IsValidEmail(email) {
		return fmt.Errorf("%w: malformed email", ErrValidation)
	}

	err := s.mailer.Send(ctx, mailer.Message{
		To:      []string{s.backoffice},
		Subject: "Message du site : " + name,
		HTML: fmt.Sprintf(
			"<p>De : %s (%s)</p><p>%s</p>",
			html.EscapeString(name), html.EscapeString(email), html.EscapeString(message),
		),
	})
	if err != nil {
		return fmt.Errorf("send contact email: %w", err)
	}

	return nil
}
