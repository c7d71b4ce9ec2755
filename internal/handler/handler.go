// Package handler содержит HTTP-обработчики API сервиса ателье.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Snoopyx126/Atelier4-sub002/internal/gate"
	"github.com/Snoopyx126/Atelier4-sub002/internal/middleware"
	"github.com/Snoopyx126/Atelier4-sub002/internal/model"
	"github.com/Snoopyx126/Atelier4-sub002/internal/repository"
	"github.com/Snoopyx126/Atelier4-sub002/internal/service"
)

const (
	// maxUploadBytes — потолок размера анкеты регистрации вместе с документом.
	maxUploadBytes = 5 << 20
	// maxUploadMemory — порог, выше которого части формы уходят во временные файлы.
	maxUploadMemory = 512 << 10
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Register(ctx context.Context, in service.RegisterInput, doc *service.Document) error
	Authenticate(ctx context.Context, email, password string) (*model.AccountView, error)
	GetAccount(ctx context.Context, id int64) (*model.AccountView, error)
	ListAccounts(ctx context.Context) ([]model.AccountView, error)
	UpdateProfile(ctx context.Context, accountID int64, in service.UpdateProfileInput) (*model.AccountView, error)
	SetVerified(ctx context.Context, accountID int64, verified bool) error
	CreateMontage(ctx context.Context, createdBy model.CreatedBy, in service.CreateMontageInput) (*model.Order, error)
	UpdateMontage(ctx context.Context, orderID int64, in service.UpdateMontageInput) (*model.Order, error)
	ListMontages(ctx context.Context, callerID int64, callerRole model.Role, ownerFilter *int64) ([]model.Order, error)
	DeleteMontage(ctx context.Context, orderID int64) error
	CreateInvoice(ctx context.Context, in service.CreateInvoiceInput) (*model.Invoice, error)
	ListInvoices(ctx context.Context, callerID int64, callerRole model.Role, ownerFilter *int64) ([]model.Invoice, error)
	SendContactEmail(ctx context.Context, name, email, message string) error
}

// Handler реализует HTTP-обработчики API сервиса ателье.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

// writeError отдаёт клиенту код и сообщение. Внутренние детали 500-х
// остаются в логах и не попадают в ответ.
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}

func (h *Handler) internalError(w http.ResponseWriter, what string, err error, fields ...zap.Field) {
	h.logger.Error(what, append(fields, zap.Error(err))...)
	h.writeError(w, http.StatusInternalServerError, "erreur serveur")
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login выполняет аутентификацию и устанавливает подписанный cookie авторизации.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "requête invalide")
		return
	}

	if req.Email == "" || req.Password == "" {
		h.writeError(w, http.StatusBadRequest, "email et mot de passe requis")
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			h.writeError(w, http.StatusUnauthorized, "identifiants invalides")
		case errors.Is(err, service.ErrAccountNotVerified):
			h.writeError(w, http.StatusForbidden, "compte en attente de validation")
		default:
			h.internalError(w, "login error", err)
		}
		return
	}

	h.authMiddleware.SetAuthCookie(w, user.ID, user.Role)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
	})
}

// Logout сбрасывает cookie авторизации.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authMiddleware.ClearAuthCookie(w)
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Register обрабатывает анкету регистрации оптика с документом Kbis.
// Временные файлы multipart-формы удаляются на любом исходе.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "pièce jointe trop volumineuse (5 Mo maximum)")
			return
		}
		h.writeError(w, http.StatusBadRequest, "formulaire invalide")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("pieceJointe")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "pièce jointe requise")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.internalError(w, "read attachment", err)
		return
	}

	in := service.RegisterInput{
		Email:       r.FormValue("email"),
		Password:    r.FormValue("password"),
		CompanyName: r.FormValue("nomSociete"),
		SIRET:       r.FormValue("siret"),
		Phone:       r.FormValue("phone"),
		Address:     r.FormValue("address"),
		ZipCity:     r.FormValue("zipCity"),
	}

	err = h.service.Register(r.Context(), in, &service.Document{
		Filename: header.Filename,
		Data:     data,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrEmailTaken):
			h.writeError(w, http.StatusConflict, "cet email est déjà enregistré")
		default:
			h.internalError(w, "register error", err)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Me возвращает проекцию текущей учётной записи и её домашний маршрут.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "non authentifié")
		return
	}

	user, err := h.service.GetAccount(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			h.writeError(w, http.StatusUnauthorized, "non authentifié")
			return
		}
		h.internalError(w, "get account error", err, zap.Int64("userID", identity.UserID))
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"user":      user,
		"homeRoute": gate.HomeRoute(user.Role),
	})
}

// ListUsers возвращает все учётные записи для административной панели.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListAccounts(r.Context())
	if err != nil {
		h.internalError(w, "list users error", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"users":   users,
	})
}

type updateUserRequest struct {
	Email           *string `json:"email"`
	NewPassword     *string `json:"newPassword"`
	CompanyName     *string `json:"nomSociete"`
	SIRET           *string `json:"siret"`
	Phone           *string `json:"phone"`
	Address         *string `json:"address"`
	ZipCity         *string `json:"zipCity"`
	CurrentPassword string  `json:"currentPassword"`
}

// UpdateUser применяет частичное обновление профиля.
// Доступно владельцу учётной записи и администратору.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "non authentifié")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "identifiant invalide")
		return
	}

	if identity.Role != model.RoleAdmin && identity.UserID != id {
		h.writeError(w, http.StatusForbidden, "accès refusé")
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "requête invalide")
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), id, service.UpdateProfileInput{
		Email:           req.Email,
		NewPassword:     req.NewPassword,
		CompanyName:     req.CompanyName,
		SIRET:           req.SIRET,
		Phone:           req.Phone,
		Address:         req.Address,
		ZipCity:         req.ZipCity,
		CurrentPassword: req.CurrentPassword,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReauthRequired):
			h.writeError(w, http.StatusUnauthorized, "mot de passe actuel requis")
		case errors.Is(err, service.ErrInvalidCredentials):
			h.writeError(w, http.StatusUnauthorized, "mot de passe actuel incorrect")
		case errors.Is(err, service.ErrValidation):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrEmailTaken):
			h.writeError(w, http.StatusConflict, "cet email est déjà enregistré")
		case errors.Is(err, repository.ErrAccountNotFound):
			h.writeError(w, http.StatusNotFound, "compte introuvable")
		default:
			h.internalError(w, "update user error", err, zap.Int64("userID", id))
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
	})
}

type verificationRequest struct {
	Verified bool `json:"isVerified"`
}

// SetVerification выставляет флаг верификации учётной записи (только администратор).
func (h *Handler) SetVerification(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "identifiant invalide")
		return
	}

	var req verificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "requête invalide")
		return
	}

	if err := h.service.SetVerified(r.Context(), id, req.Verified); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			h.writeError(w, http.StatusNotFound, "compte introuvable")
			return
		}
		h.internalError(w, "set verification error", err, zap.Int64("userID", id))
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type montageResponse struct {
	ID             int64    `json:"id"`
	UserID         int64    `json:"userId"`
	NomSociete     string   `json:"nomSociete"`
	Description    string   `json:"description"`
	Frame          string   `json:"frame,omitempty"`
	Reference      string   `json:"reference,omitempty"`
	Category       string   `json:"category"`
	GlassType      []string `json:"glassType"`
	Urgency        string   `json:"urgency"`
	DiamondCutType string   `json:"diamondCutType,omitempty"`
	EngravingCount int      `json:"engravingCount"`
	ShapeChange    bool     `json:"shapeChange"`
	Photo          string   `json:"photo,omitempty"`
	CreatedBy      string   `json:"createdBy"`
	Statut         string   `json:"statut"`
	CreatedAt      string   `json:"createdAt"`
}

func toMontageResponse(o *model.Order) montageResponse {
	return montageResponse{
		ID:             o.ID,
		UserID:         o.OwnerID,
		NomSociete:     o.OwnerName,
		Description:    o.Description,
		Frame:          o.Frame,
		Reference:      o.Reference,
		Category:       o.Category,
		GlassType:      o.GlassTypes,
		Urgency:        o.Urgency,
		DiamondCutType: o.DiamondCutType,
		EngravingCount: o.EngravingCount,
		ShapeChange:    o.ShapeChange,
		Photo:          o.PhotoRef,
		CreatedBy:      string(o.CreatedBy),
		Statut:         string(o.Status),
		CreatedAt:      o.CreatedAt.Format(time.RFC3339),
	}
}

// ListMontages возвращает заявки, видимые вызывающему. Личность и роль берутся
// из подписанного cookie, query-параметр userId учитывается только для администратора.
func (h *Handler) ListMontages(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "non authentifié")
		return
	}

	var ownerFilter *int64
	if v := r.URL.Query().Get("userId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "userId invalide")
			return
		}
		ownerFilter = &id
	}

	orders, err := h.service.ListMontages(r.Context(), identity.UserID, identity.Role, ownerFilter)
	if err != nil {
		h.internalError(w, "list montages error", err, zap.Int64("userID", identity.UserID))
		return
	}

	resp := make([]montageResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, toMontageResponse(&orders[i]))
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"montages": resp,
	})
}

type createMontageRequest struct {
	UserID         int64    `json:"userId"`
	Description    string   `json:"description"`
	Frame          string   `json:"frame"`
	Reference      string   `json:"reference"`
	Category       string   `json:"category"`
	GlassType      []string `json:"glassType"`
	Urgency        string   `json:"urgency"`
	DiamondCutType string   `json:"diamondCutType"`
	EngravingCount int      `json:"engravingCount"`
	ShapeChange    bool     `json:"shapeChange"`
	Photo          string   `json:"photo"`
}

// CreateMontage создаёт заявку на монтаж. Клиент всегда создаёт заявку на себя;
// администратор может указать любого владельца.
func (h *Handler) CreateMontage(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "non authentifié")
		return
	}

	var req createMontageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "requête invalide")
		return
	}

	createdBy := model.CreatedByClient
	ownerID := identity.UserID
	if identity.Role == model.RoleAdmin {
		createdBy = model.CreatedByAdmin
		if req.UserID != 0 {
			ownerID = req.UserID
		}
	}

	montage, err := h.service.CreateMontage(r.Context(), createdBy, service.CreateMontageInput{
		OwnerID:        ownerID,
		Description:    req.Description,
		Frame:          req.Frame,
		Reference:      req.Reference,
		Category:       req.Category,
		GlassTypes:     req.GlassType,
		Urgency:        req.Urgency,
		DiamondCutType: req.DiamondCutType,
		EngravingCount: req.EngravingCount,
		ShapeChange:    req.ShapeChange,
		PhotoRef:       req.Photo,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrOwnerNotFound):
			h.writeError(w, http.StatusNotFound, "client introuvable")
		default:
			h.internalError(w, "create montage error", err, zap.Int64("ownerID", ownerID))
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"montage": toMontageResponse(montage),
	})
}

type updateMontageRequest struct {
	UserID         *int64    `json:"userId"`
	Description    *string   `json:"description"`
	Frame          *string   `json:"frame"`
	Reference      *string   `json:"reference"`
	Category       *string   `json:"category"`
	GlassType      *[]string `json:"glassType"`
	Urgency        *string   `json:"urgency"`
	DiamondCutType *string   `json:"diamondCutType"`
	EngravingCount *int      `json:"engravingCount"`
	ShapeChange    *bool     `json:"shapeChange"`
	Photo          *string   `json:"photo"`
	Statut         *string   `json:"statut"`
	Force          bool      `json:"force"`
}

// UpdateMontage применяет частичное обновление заявки (только администратор).
// Применяются только присутствующие в теле ключи.
func (h *Handler) UpdateMontage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "identifiant invalide")
		return
	}

	var req updateMontageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "requête invalide")
		return
	}

	montage, err := h.service.UpdateMontage(r.Context(), id, service.UpdateMontageInput{
		OwnerID:        req.UserID,
		Description:    req.Description,
		Frame:          req.Frame,
		Reference:      req.Reference,
		Category:       req.Category,
		GlassTypes:     req.GlassType,
		Urgency:        req.Urgency,
		DiamondCutType: req.DiamondCutType,
		EngravingCount: req.EngravingCount,
		ShapeChange:    req.ShapeChange,
		PhotoRef:       req.Photo,
		Status:         req.Statut,
		Force:          req.Force,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			h.writeError(w, http.StatusNotFound, "montage introuvable")
		case errors.Is(err, service.ErrOwnerNotFound):
			h.writeError(w, http.StatusNotFound, "client introuvable")
		case errors.Is(err, service.ErrValidation):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrStatusTransition):
			h.writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.internalError(w, "update montage error", err, zap.Int64("montageID", id))
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"montage": toMontageResponse(montage),
	})
}

// DeleteMontage безвозвратно удаляет заявку (только администратор).
func (h *Handler) DeleteMontage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "identifiant invalide")
		return
	}

	if err := h.service.DeleteMontage(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			h.writeError(w, http.StatusNotFound, "montage introuvable")
			return
		}
		h.internalError(w, "delete montage error", err, zap.Int64("montageID", id))
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type invoiceResponse struct {
	ID             int64           `json:"id"`
	UserID         int64           `json:"userId"`
	Numero         string          `json:"numero"`
	TotalHT        float64         `json:"totalHT"`
	TotalTTC       float64         `json:"totalTTC"`
	MontantPaye    float64         `json:"montantPaye"`
	StatutPaiement string          `json:"statutPaiement"`
	Montages       []string        `json:"montages"`
	Lignes         json.RawMessage `json:"lignes"`
	Document       string          `json:"document,omitempty"`
	CreatedAt      string          `json:"createdAt"`
}

func toInvoiceResponse(inv *model.Invoice) invoiceResponse {
	lignes := json.RawMessage(inv.Items)
	if len(lignes) == 0 {
		lignes = json.RawMessage(`[]`)
	}
	return invoiceResponse{
		ID:             inv.ID,
		UserID:         inv.OwnerID,
		Numero:         inv.Number,
		TotalHT:        float64(inv.TotalHTCents) / 100,
		TotalTTC:       float64(inv.TotalTTCCents) / 100,
		MontantPaye:    float64(inv.PaidCents) / 100,
		StatutPaiement: inv.PaymentStatus,
		Montages:       inv.OrderRefs,
		Lignes:         lignes,
		Document:       inv.DocumentURL,
		CreatedAt:      inv.CreatedAt.Format(time.RFC3339),
	}
}

// ListInvoices возвращает фактуры, видимые вызывающему.
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "non authentifié")
		return
	}

	var ownerFilter *int64
	if v := r.URL.Query().Get("userId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "userId invalide")
			return
		}
		ownerFilter = &id
	}

	invoices, err := h.service.ListInvoices(r.Context(), identity.UserID, identity.Role, ownerFilter)
	if err != nil {
		h.internalError(w, "list invoices error", err, zap.Int64("userID", identity.UserID))
		return
	}

	resp := make([]invoiceResponse, 0, len(invoices))
	for i := range invoices {
		resp = append(resp, toInvoiceResponse(&invoices[i]))
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"factures": resp,
	})
}

// toCents переводит сумму из евро в сантимы с округлением:
// усечение искажает суммы, не представимые точно в float64 (19.99 × 100 = 1998.999…).
func toCents(euros float64) int64 {
	return int64(math.Round(euros * 100))
}

type createInvoiceRequest struct {
	UserID         int64           `json:"userId"`
	Numero         string          `json:"numero"`
	TotalHT        float64         `json:"totalHT"`
	TotalTTC       float64         `json:"totalTTC"`
	MontantPaye    float64         `json:"montantPaye"`
	StatutPaiement string          `json:"statutPaiement"`
	Montages       []string        `json:"montages"`
	Lignes         json.RawMessage `json:"lignes"`
	Document       string          `json:"document"`
}

// CreateInvoice создаёт фактуру (только администратор).
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "requête invalide")
		return
	}

	invoice, err := h.service.CreateInvoice(r.Context(), service.CreateInvoiceInput{
		OwnerID:       req.UserID,
		Number:        req.Numero,
		TotalHTCents:  toCents(req.TotalHT),
		TotalTTCCents: toCents(req.TotalTTC),
		PaidCents:     toCents(req.MontantPaye),
		PaymentStatus: req.StatutPaiement,
		OrderRefs:     req.Montages,
		Items:         req.Lignes,
		DocumentURL:   req.Document,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrOwnerNotFound):
			h.writeError(w, http.StatusNotFound, "client introuvable")
		case errors.Is(err, repository.ErrInvoiceNumberTaken):
			h.writeError(w, http.StatusConflict, "ce numéro de facture existe déjà")
		default:
			h.internalError(w, "create invoice error", err, zap.Int64("ownerID", req.UserID))
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"facture": toInvoiceResponse(invoice),
	})
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// SendEmail пересылает сообщение публичной контактной формы в бэк-офис.
func (h *Handler) SendEmail(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "requête invalide")
		return
	}

	if err := h.service.SendContactEmail(r.Context(), req.Name, req.Email, req.Message); err != nil {
		if errors.Is(err, service.ErrValidation) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.internalError(w, "send contact email error", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
