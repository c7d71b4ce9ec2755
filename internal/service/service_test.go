package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Snoopyx126/Atelier4-sub002/internal/mailer"
	"github.com/Snoopyx126/Atelier4-sub002/internal/model"
	"github.com/Snoopyx126/Atelier4-sub002/internal/repository"
)

type stubRepo struct {
	createAccountID    int64
	createAccountErr   error
	createAccountCalls int

	accountsByEmail map[string]*model.Account
	accountsByID    map[int64]*model.Account

	accountNames []string

	updatedAccount *model.Account
	updateErr      error

	verifiedSet map[int64]bool

	createdOrder     *model.Order
	createOrderErr   error
	createOrderCalls int

	orderByID    *model.Order
	updatedOrder *model.Order

	ownerOrders []model.Order
	allOrders   []model.Order

	lastOwnerListID int64
	listAllCalls    int

	deleteErr error

	createdInvoice *model.Invoice
	ownerInvoices  []model.Invoice
	allInvoices    []model.Invoice
}

func (s *stubRepo) Close() error { return nil }

func (s *stubRepo) CreateAccount(ctx context.Context, a *model.Account) (int64, error) {
	s.createAccountCalls++
	if s.createAccountErr != nil {
		return 0, s.createAccountErr
	}
	return s.createAccountID, nil
}

func (s *stubRepo) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	if a, ok := s.accountsByEmail[email]; ok {
		return a, nil
	}
	return nil, repository.ErrAccountNotFound
}

func (s *stubRepo) GetAccountByID(ctx context.Context, id int64) (*model.Account, error) {
	if a, ok := s.accountsByID[id]; ok {
		return a, nil
	}
	return nil, repository.ErrAccountNotFound
}

func (s *stubRepo) ListAccounts(ctx context.Context) ([]model.Account, error) {
	return nil, nil
}

func (s *stubRepo) GetAccountNames(ctx context.Context, ids []int64) ([]string, error) {
	return s.accountNames, nil
}

func (s *stubRepo) UpdateAccount(ctx context.Context, id int64, upd repository.AccountUpdate) (*model.Account, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return s.updatedAccount, nil
}

func (s *stubRepo) SetAccountVerified(ctx context.Context, id int64, verified bool) error {
	if s.verifiedSet == nil {
		s.verifiedSet = map[int64]bool{}
	}
	s.verifiedSet[id] = verified
	return nil
}

func (s *stubRepo) CreateOrder(ctx context.Context, o *model.Order) (*model.Order, error) {
	s.createOrderCalls++
	if s.createOrderErr != nil {
		return nil, s.createOrderErr
	}
	created := *o
	created.ID = 101
	s.createdOrder = &created
	return &created, nil
}

func (s *stubRepo) GetOrderByID(ctx context.Context, id int64) (*model.Order, error) {
	if s.orderByID == nil {
		return nil, repository.ErrOrderNotFound
	}
	return s.orderByID, nil
}

func (s *stubRepo) UpdateOrder(ctx context.Context, id int64, upd repository.OrderUpdate) (*model.Order, error) {
	if s.updatedOrder != nil {
		return s.updatedOrder, nil
	}
	updated := *s.orderByID
	if upd.Status != nil {
		updated.Status = *upd.Status
	}
	if upd.OwnerID != nil {
		updated.OwnerID = *upd.OwnerID
	}
	if upd.OwnerName != nil {
		updated.OwnerName = *upd.OwnerName
	}
	return &updated, nil
}

func (s *stubRepo) DeleteOrder(ctx context.Context, id int64) error {
	return s.deleteErr
}

func (s *stubRepo) ListOrdersByOwner(ctx context.Context, ownerID int64) ([]model.Order, error) {
	s.lastOwnerListID = ownerID
	return s.ownerOrders, nil
}

func (s *stubRepo) ListOrders(ctx context.Context) ([]model.Order, error) {
	s.listAllCalls++
	return s.allOrders, nil
}

func (s *stubRepo) CreateInvoice(ctx context.Context, inv *model.Invoice) (*model.Invoice, error) {
	created := *inv
	created.ID = 7
	s.createdInvoice = &created
	return &created, nil
}

func (s *stubRepo) ListInvoicesByOwner(ctx context.Context, ownerID int64) ([]model.Invoice, error) {
	s.lastOwnerListID = ownerID
	return s.ownerInvoices, nil
}

func (s *stubRepo) ListInvoices(ctx context.Context) ([]model.Invoice, error) {
	return s.allInvoices, nil
}

type stubMailer struct {
	sent    []mailer.Message
	sendErr error
}

func (m *stubMailer) Send(ctx context.Context, msg mailer.Message) error {
	m.sent = append(m.sent, msg)
	return m.sendErr
}

func newTestService(repo *stubRepo, m *stubMailer) *Service {
	return NewService(repo, m, zap.NewNop(), "backoffice@example.com")
}

func mustHash(t *testing.T, password string) []byte {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

func validRegisterInput() RegisterInput {
	return RegisterInput{
		Email:       "acme@example.com",
		Password:    "Pass123!",
		CompanyName: "ACME Optics",
		SIRET:       "73282932000074",
	}
}

func kbisDoc() *Document {
	return &Document{Filename: "kbis.pdf", Data: []byte("%PDF-fake")}
}

func TestRegister_SendsBackofficeNotificationWithAttachment(t *testing.T) {
	repo := &stubRepo{createAccountID: 1}
	m := &stubMailer{}
	svc := newTestService(repo, m)

	if err := svc.Register(context.Background(), validRegisterInput(), kbisDoc()); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	if len(m.sent) != 1 {
		t.Fatalf("sent = %d messages, want 1", len(m.sent))
	}
	msg := m.sent[0]
	if len(msg.To) != 1 || msg.To[0] != "backoffice@example.com" {
		t.Fatalf("unexpected recipients: %v", msg.To)
	}
	if len(msg.Attachments) != 1 || msg.Attachments[0].Filename != "kbis.pdf" {
		t.Fatalf("unexpected attachments: %+v", msg.Attachments)
	}
}

func TestRegister_PropagatesDuplicateEmail(t *testing.T) {
	repo := &stubRepo{createAccountErr: repository.ErrEmailTaken}
	m := &stubMailer{}
	svc := newTestService(repo, m)

	err := svc.Register(context.Background(), validRegisterInput(), kbisDoc())
	if !errors.Is(err, repository.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if len(m.sent) != 0 {
		t.Fatalf("no notification expected on duplicate, sent %d", len(m.sent))
	}
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *RegisterInput)
		doc    *Document
	}{
		{name: "missing email", mutate: func(in *RegisterInput) { in.Email = "" }, doc: kbisDoc()},
		{name: "missing password", mutate: func(in *RegisterInput) { in.Password = "" }, doc: kbisDoc()},
		{name: "malformed email", mutate: func(in *RegisterInput) { in.Email = "not-an-email" }, doc: kbisDoc()},
		{name: "bad siret checksum", mutate: func(in *RegisterInput) { in.SIRET = "73282932000075" }, doc: kbisDoc()},
		{name: "missing document", mutate: func(in *RegisterInput) {}, doc: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &stubRepo{}
			svc := newTestService(repo, &stubMailer{})

			in := validRegisterInput()
			tt.mutate(&in)

			err := svc.Register(context.Background(), in, tt.doc)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if repo.createAccountCalls != 0 {
				t.Fatalf("account must not be created on validation error")
			}
		})
	}
}

func TestRegister_MailFailureDoesNotFailRegistration(t *testing.T) {
	repo := &stubRepo{createAccountID: 1}
	m := &stubMailer{sendErr: errors.New("provider down")}
	svc := newTestService(repo, m)

	if err := svc.Register(context.Background(), validRegisterInput(), kbisDoc()); err != nil {
		t.Fatalf("Register must succeed despite mail failure, got %v", err)
	}
	if repo.createAccountCalls != 1 {
		t.Fatalf("account not created")
	}
}

func TestAuthenticate_IndistinguishableFailures(t *testing.T) {
	repo := &stubRepo{
		accountsByEmail: map[string]*model.Account{
			"acme@example.com": {
				ID:           1,
				Email:        "acme@example.com",
				PasswordHash: mustHash(t, "correct"),
				Role:         model.RoleClient,
				Verified:     true,
			},
		},
	}
	svc := newTestService(repo, &stubMailer{})

	_, errUnknown := svc.Authenticate(context.Background(), "ghost@example.com", "whatever")
	_, errWrongPass := svc.Authenticate(context.Background(), "acme@example.com", "wrong")

	if !errors.Is(errUnknown, ErrInvalidCredentials) || !errors.Is(errWrongPass, ErrInvalidCredentials) {
		t.Fatalf("both failures must be ErrInvalidCredentials, got %v and %v", errUnknown, errWrongPass)
	}
	if errUnknown.Error() != errWrongPass.Error() {
		t.Fatalf("error texts differ: %q vs %q", errUnknown.Error(), errWrongPass.Error())
	}
}

func TestAuthenticate_UnverifiedRejected(t *testing.T) {
	repo := &stubRepo{
		accountsByEmail: map[string]*model.Account{
			"acme@example.com": {
				ID:           1,
				Email:        "acme@example.com",
				PasswordHash: mustHash(t, "correct"),
				Role:         model.RoleClient,
				Verified:     false,
			},
		},
	}
	svc := newTestService(repo, &stubMailer{})

	_, err := svc.Authenticate(context.Background(), "acme@example.com", "correct")
	if !errors.Is(err, ErrAccountNotVerified) {
		t.Fatalf("expected ErrAccountNotVerified, got %v", err)
	}
}

func TestAuthenticate_ReturnsSanitizedView(t *testing.T) {
	repo := &stubRepo{
		accountsByEmail: map[string]*model.Account{
			"acme@example.com": {
				ID:           1,
				Email:        "acme@example.com",
				PasswordHash: mustHash(t, "correct"),
				CompanyName:  "ACME Optics",
				Role:         model.RoleClient,
				Verified:     true,
			},
		},
	}
	svc := newTestService(repo, &stubMailer{})

	view, err := svc.Authenticate(context.Background(), "acme@example.com", "correct")
	if err != nil {
		t.Fatalf("Authenticate error: %v", err)
	}
	if view.Role != model.RoleClient || view.CompanyName != "ACME Optics" {
		t.Fatalf("unexpected view: %+v", view)
	}
}

func TestAuthenticate_ManagerShopsResolved(t *testing.T) {
	repo := &stubRepo{
		accountsByEmail: map[string]*model.Account{
			"manager@example.com": {
				ID:           5,
				Email:        "manager@example.com",
				PasswordHash: mustHash(t, "correct"),
				Role:         model.RoleManager,
				Verified:     true,
				Shops:        []int64{1, 2},
			},
		},
		accountNames: []string{"ACME Optics", "Lunettes & Co"},
	}
	svc := newTestService(repo, &stubMailer{})

	view, err := svc.Authenticate(context.Background(), "manager@example.com", "correct")
	if err != nil {
		t.Fatalf("Authenticate error: %v", err)
	}
	if len(view.Shops) != 2 || view.Shops[0] != "ACME Optics" {
		t.Fatalf("shops not resolved to names: %v", view.Shops)
	}
}

func TestUpdateProfile_ReauthRequired(t *testing.T) {
	repo := &stubRepo{
		accountsByID: map[int64]*model.Account{
			1: {ID: 1, PasswordHash: mustHash(t, "correct")},
		},
	}
	svc := newTestService(repo, &stubMailer{})

	newEmail := "new@example.com"

	_, err := svc.UpdateProfile(context.Background(), 1, UpdateProfileInput{Email: &newEmail})
	if !errors.Is(err, ErrReauthRequired) {
		t.Fatalf("expected ErrReauthRequired, got %v", err)
	}

	_, err = svc.UpdateProfile(context.Background(), 1, UpdateProfileInput{
		Email:           &newEmail,
		CurrentPassword: "wrong",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestUpdateProfile_PlainFieldsWithoutPassword(t *testing.T) {
	phone := "0601020304"
	repo := &stubRepo{
		updatedAccount: &model.Account{ID: 1, Phone: phone, Role: model.RoleClient},
	}
	svc := newTestService(repo, &stubMailer{})

	view, err := svc.UpdateProfile(context.Background(), 1, UpdateProfileInput{Phone: &phone})
	if err != nil {
		t.Fatalf("UpdateProfile error: %v", err)
	}
	if view.Phone != phone {
		t.Fatalf("phone = %q, want %q", view.Phone, phone)
	}
}

func TestCreateMontage_OwnerNotFound(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(repo, &stubMailer{})

	_, err := svc.CreateMontage(context.Background(), model.CreatedByClient, CreateMontageInput{
		OwnerID:     99,
		Description: "Monture Dior",
	})
	if !errors.Is(err, ErrOwnerNotFound) {
		t.Fatalf("expected ErrOwnerNotFound, got %v", err)
	}
	if repo.createOrderCalls != 0 {
		t.Fatalf("montage must not be persisted for unknown owner")
	}
}

func TestCreateMontage_DefaultsAndSnapshot(t *testing.T) {
	repo := &stubRepo{
		accountsByID: map[int64]*model.Account{
			1: {ID: 1, Email: "acme@example.com", CompanyName: "ACME Optics"},
		},
	}
	m := &stubMailer{}
	svc := newTestService(repo, m)

	created, err := svc.CreateMontage(context.Background(), model.CreatedByClient, CreateMontageInput{
		OwnerID:     1,
		Description: "Monture Dior",
	})
	if err != nil {
		t.Fatalf("CreateMontage error: %v", err)
	}

	if created.Status != model.OrderStatusPending {
		t.Fatalf("status = %q, want %q", created.Status, model.OrderStatusPending)
	}
	if created.Category != model.DefaultCategory {
		t.Fatalf("category = %q, want %q", created.Category, model.DefaultCategory)
	}
	if created.Urgency != model.DefaultUrgency {
		t.Fatalf("urgency = %q, want %q", created.Urgency, model.DefaultUrgency)
	}
	if created.EngravingCount != 0 {
		t.Fatalf("engraving count = %d, want 0", created.EngravingCount)
	}
	if created.OwnerName != "ACME Optics" {
		t.Fatalf("owner name snapshot = %q, want ACME Optics", created.OwnerName)
	}
	if created.CreatedBy != model.CreatedByClient {
		t.Fatalf("created by = %q, want client", created.CreatedBy)
	}

	if len(m.sent) != 1 || m.sent[0].To[0] != "acme@example.com" {
		t.Fatalf("owner notification not sent: %+v", m.sent)
	}
}

func TestCreateMontage_AdminCreationStartsPendingToo(t *testing.T) {
	repo := &stubRepo{
		accountsByID: map[int64]*model.Account{
			1: {ID: 1, CompanyName: "ACME Optics"},
		},
	}
	svc := newTestService(repo, &stubMailer{})

	created, err := svc.CreateMontage(context.Background(), model.CreatedByAdmin, CreateMontageInput{
		OwnerID:     1,
		Description: "Monture Ray-Ban",
	})
	if err != nil {
		t.Fatalf("CreateMontage error: %v", err)
	}
	if created.Status != model.OrderStatusPending {
		t.Fatalf("status = %q, want %q regardless of creator", created.Status, model.OrderStatusPending)
	}
	if created.CreatedBy != model.CreatedByAdmin {
		t.Fatalf("created by = %q, want admin", created.CreatedBy)
	}
}

func TestUpdateMontage_RejectsUnknownStatus(t *testing.T) {
	repo := &stubRepo{
		orderByID: &model.Order{ID: 1, OwnerID: 1, Status: model.OrderStatusPending},
	}
	svc := newTestService(repo, &stubMailer{})

	status := "N'importe quoi"
	_, err := svc.UpdateMontage(context.Background(), 1, UpdateMontageInput{Status: &status})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestUpdateMontage_ForwardOnlyUnlessForced(t *testing.T) {
	backward := string(model.OrderStatusPending)

	repo := &stubRepo{
		orderByID: &model.Order{ID: 1, OwnerID: 1, Status: model.OrderStatusShipped},
		accountsByID: map[int64]*model.Account{
			1: {ID: 1, Email: "acme@example.com", CompanyName: "ACME Optics"},
		},
	}
	svc := newTestService(repo, &stubMailer{})

	_, err := svc.UpdateMontage(context.Background(), 1, UpdateMontageInput{Status: &backward})
	if !errors.Is(err, ErrStatusTransition) {
		t.Fatalf("expected ErrStatusTransition, got %v", err)
	}

	updated, err := svc.UpdateMontage(context.Background(), 1, UpdateMontageInput{Status: &backward, Force: true})
	if err != nil {
		t.Fatalf("forced transition error: %v", err)
	}
	if updated.Status != model.OrderStatusPending {
		t.Fatalf("status = %q, want %q", updated.Status, model.OrderStatusPending)
	}
}

func TestUpdateMontage_StatusChangeNotifiesOwner(t *testing.T) {
	shipped := string(model.OrderStatusShipped)

	repo := &stubRepo{
		orderByID: &model.Order{ID: 1, OwnerID: 1, Status: model.OrderStatusCompleted, Description: "Monture Dior"},
		accountsByID: map[int64]*model.Account{
			1: {ID: 1, Email: "acme@example.com", CompanyName: "ACME Optics"},
		},
	}
	m := &stubMailer{}
	svc := newTestService(repo, m)

	if _, err := svc.UpdateMontage(context.Background(), 1, UpdateMontageInput{Status: &shipped}); err != nil {
		t.Fatalf("UpdateMontage error: %v", err)
	}

	if len(m.sent) != 1 || m.sent[0].To[0] != "acme@example.com" {
		t.Fatalf("status notification not sent: %+v", m.sent)
	}
}

func TestUpdateMontage_OwnerChangeRefreshesSnapshot(t *testing.T) {
	newOwnerID := int64(2)

	repo := &stubRepo{
		orderByID: &model.Order{ID: 1, OwnerID: 1, OwnerName: "ACME Optics", Status: model.OrderStatusPending},
		accountsByID: map[int64]*model.Account{
			2: {ID: 2, Email: "other@example.com", CompanyName: "Lunettes & Co"},
		},
	}
	svc := newTestService(repo, &stubMailer{})

	updated, err := svc.UpdateMontage(context.Background(), 1, UpdateMontageInput{OwnerID: &newOwnerID})
	if err != nil {
		t.Fatalf("UpdateMontage error: %v", err)
	}
	if updated.OwnerID != 2 || updated.OwnerName != "Lunettes & Co" {
		t.Fatalf("owner not refreshed: %+v", updated)
	}
}

func TestUpdateMontage_UnknownOwnerRejected(t *testing.T) {
	ghost := int64(99)

	repo := &stubRepo{
		orderByID: &model.Order{ID: 1, OwnerID: 1, Status: model.OrderStatusPending},
	}
	svc := newTestService(repo, &stubMailer{})

	_, err := svc.UpdateMontage(context.Background(), 1, UpdateMontageInput{OwnerID: &ghost})
	if !errors.Is(err, ErrOwnerNotFound) {
		t.Fatalf("expected ErrOwnerNotFound, got %v", err)
	}
}

func TestListMontages_ClientScopedToOwnOrders(t *testing.T) {
	repo := &stubRepo{
		ownerOrders: []model.Order{{ID: 1, OwnerID: 42}},
	}
	svc := newTestService(repo, &stubMailer{})

	// Фильтр по чужому владельцу игнорируется для не-администратора.
	foreign := int64(7)
	orders, err := svc.ListMontages(context.Background(), 42, model.RoleClient, &foreign)
	if err != nil {
		t.Fatalf("ListMontages error: %v", err)
	}
	if repo.lastOwnerListID != 42 {
		t.Fatalf("listed owner = %d, want caller id 42", repo.lastOwnerListID)
	}
	if len(orders) != 1 || orders[0].OwnerID != 42 {
		t.Fatalf("unexpected orders: %+v", orders)
	}
}

func TestListMontages_AdminSeesAllOrFiltered(t *testing.T) {
	repo := &stubRepo{
		allOrders:   []model.Order{{ID: 1}, {ID: 2}},
		ownerOrders: []model.Order{{ID: 2, OwnerID: 7}},
	}
	svc := newTestService(repo, &stubMailer{})

	all, err := svc.ListMontages(context.Background(), 1, model.RoleAdmin, nil)
	if err != nil {
		t.Fatalf("ListMontages error: %v", err)
	}
	if len(all) != 2 || repo.listAllCalls != 1 {
		t.Fatalf("admin without filter must list all orders")
	}

	filter := int64(7)
	filtered, err := svc.ListMontages(context.Background(), 1, model.RoleAdmin, &filter)
	if err != nil {
		t.Fatalf("ListMontages error: %v", err)
	}
	if len(filtered) != 1 || repo.lastOwnerListID != 7 {
		t.Fatalf("admin filter not applied")
	}
}

func TestCreateInvoice_OwnerNotFound(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(repo, &stubMailer{})

	_, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{OwnerID: 99, Number: "F-2026-001"})
	if !errors.Is(err, ErrOwnerNotFound) {
		t.Fatalf("expected ErrOwnerNotFound, got %v", err)
	}
}

func TestCreateInvoice_Defaults(t *testing.T) {
	repo := &stubRepo{
		accountsByID: map[int64]*model.Account{1: {ID: 1}},
	}
	svc := newTestService(repo, &stubMailer{})

	inv, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{OwnerID: 1, Number: "F-2026-001"})
	if err != nil {
		t.Fatalf("CreateInvoice error: %v", err)
	}
	if inv.PaymentStatus != "En attente de paiement" {
		t.Fatalf("payment status = %q", inv.PaymentStatus)
	}
}

func TestSendContactEmail_Validation(t *testing.T) {
	svc := newTestService(&stubRepo{}, &stubMailer{})

	err := svc.SendContactEmail(context.Background(), "", "x@example.com", "bonjour")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestSendContactEmail_PropagatesMailFailure(t *testing.T) {
	m := &stubMailer{sendErr: errors.New("provider down")}
	svc := newTestService(&stubRepo{}, m)

	err := svc.SendContactEmail(context.Background(), "Jean", "jean@example.com", "bonjour")
	if err == nil {
		t.Fatalf("expected error when mail provider fails")
	}
}

func TestSetVerified_NotifiesOnApproval(t *testing.T) {
	repo := &stubRepo{
		accountsByID: map[int64]*model.Account{
			1: {ID: 1, Email: "acme@example.com", CompanyName: "ACME Optics"},
		},
	}
	m := &stubMailer{}
	svc := newTestService(repo, m)

	if err := svc.SetVerified(context.Background(), 1, true); err != nil {
		t.Fatalf("SetVerified error: %v", err)
	}
	if !repo.verifiedSet[1] {
		t.Fatalf("verification flag not set")
	}
	if len(m.sent) != 1 || m.sent[0].To[0] != "acme@example.com" {
		t.Fatalf("approval notification not sent: %+v", m.sent)
	}

	if err := svc.SetVerified(context.Background(), 1, false); err != nil {
		t.Fatalf("SetVerified error: %v", err)
	}
	if len(m.sent) != 1 {
		t.Fatalf("no notification expected when revoking verification")
	}
}
