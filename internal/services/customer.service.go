package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/nimasrn/store-ledger/internal/model"
	"github.com/nimasrn/store-ledger/internal/repository"
	"github.com/nimasrn/store-ledger/pkg/logger"
	"github.com/shopspring/decimal"
)

type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type CustomerRepository interface {
	Transactor
	Create(ctx context.Context, c *model.Customer) (*model.Customer, error)
	GetActive(ctx context.Context, storeID, id uuid.UUID) (*model.Customer, error)
	GetActiveForUpdate(ctx context.Context, storeID, id uuid.UUID) (*model.Customer, error)
	FindActiveByPhone(ctx context.Context, storeID uuid.UUID, phone string) (*model.Customer, error)
	UpdateProfile(ctx context.Context, storeID, id uuid.UUID, req model.CustomerUpdateRequest) (*model.Customer, error)
	Deactivate(ctx context.Context, storeID, id uuid.UUID) error
	List(ctx context.Context, f model.CustomerFilter) ([]*model.Customer, int64, error) // results, totalCount
	ApplyLedgerDelta(ctx context.Context, id uuid.UUID, credit, paid decimal.Decimal) (*model.Customer, error)
	SetTotals(ctx context.Context, id uuid.UUID, totals model.LedgerTotals) error
	Overview(ctx context.Context, storeID uuid.UUID) (*model.CustomerOverview, error)
}

type CustomerService struct {
	customers CustomerRepository
}

func NewCustomerService(customers CustomerRepository) *CustomerService {
	return &CustomerService{
		customers: customers,
	}
}

func (s *CustomerService) Create(ctx context.Context, req model.CustomerCreateRequest) (*model.Customer, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.ensurePhoneFree(ctx, req.StoreID, req.Phone, uuid.Nil); err != nil {
		return nil, err
	}

	created, err := s.customers.Create(ctx, &model.Customer{
		StoreID: req.StoreID,
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		return nil, classify("create_customer", fromRepo(err, ErrCustomerNotFound))
	}
	logger.Info("[customers] created", "store_id", created.StoreID, "customer_id", created.ID)
	return created, nil
}

// Update changes profile fields only. The ledger columns are owned by the
// ledger engine.
func (s *CustomerService) Update(ctx context.Context, storeID, id uuid.UUID, req model.CustomerUpdateRequest) (*model.Customer, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Phone != nil {
		if err := s.ensurePhoneFree(ctx, storeID, *req.Phone, id); err != nil {
			return nil, err
		}
	}

	updated, err := s.customers.UpdateProfile(ctx, storeID, id, req)
	if err != nil {
		return nil, classify("update_customer", fromRepo(err, ErrCustomerNotFound))
	}
	return updated, nil
}

// Deactivate soft-deletes the customer. Its transactions stay in place.
func (s *CustomerService) Deactivate(ctx context.Context, storeID, id uuid.UUID) error {
	c, err := s.customers.GetActive(ctx, storeID, id)
	if err != nil {
		return fromRepo(err, ErrCustomerNotFound)
	}
	if !model.CustomerStateOf(c.IsActive).CanTransitionTo(model.CustomerInactive) {
		return ErrNotEditable
	}
	if err := s.customers.Deactivate(ctx, storeID, id); err != nil {
		return classify("deactivate_customer", fromRepo(err, ErrCustomerNotFound))
	}
	logger.Info("[customers] deactivated", "store_id", storeID, "customer_id", id)
	return nil
}

func (s *CustomerService) Get(ctx context.Context, storeID, id uuid.UUID) (*model.Customer, error) {
	c, err := s.customers.GetActive(ctx, storeID, id)
	if err != nil {
		return nil, fromRepo(err, ErrCustomerNotFound)
	}
	return c, nil
}

func (s *CustomerService) List(ctx context.Context, f model.CustomerFilter) ([]*model.Customer, int64, error) {
	return s.customers.List(ctx, f)
}

// Overview reports store-wide balances. OverdueAmount only sums positive
// balances, so overpaid customers don't reduce it.
func (s *CustomerService) Overview(ctx context.Context, storeID uuid.UUID) (*model.CustomerOverview, error) {
	return s.customers.Overview(ctx, storeID)
}

func (s *CustomerService) ensurePhoneFree(ctx context.Context, storeID uuid.UUID, phone string, self uuid.UUID) error {
	existing, err := s.customers.FindActiveByPhone(ctx, storeID, phone)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID == self:
		return nil
	}
	return ErrDuplicateKey
}
