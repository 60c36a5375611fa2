package coordinator

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"floorsync-system/internal/database/models"
	"floorsync-system/internal/domain"
	"floorsync-system/internal/store"
)

type EmployeeInput struct {
	RestaurantID string
	Email        string
	Password     string
	FirstName    string
	LastName     string
	Role         domain.Role
	HourlyRate   *decimal.Decimal
	Phone        *string
}

type EmployeeUpdate struct {
	Email      *string
	Password   *string
	FirstName  *string
	LastName   *string
	Role       *domain.Role
	HourlyRate *decimal.Decimal
	Phone      *string
}

const minPasswordLength = 8

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", domain.Validation("invalid email %q", email)
	}
	return email, nil
}

func (c *Coordinator) hashPassword(pw string) (string, error) {
	if len(pw) < minPasswordLength {
		return "", domain.Validation("password must be at least %d characters", minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), c.bcryptCost)
	if err != nil {
		return "", domain.Internal("hash password", err)
	}
	return string(hash), nil
}

func validateEmployee(e models.Employee) error {
	if strings.TrimSpace(e.FirstName) == "" || strings.TrimSpace(e.LastName) == "" {
		return domain.Validation("firstName and lastName are required")
	}
	if _, err := domain.ParseRole(string(e.Role)); err != nil {
		return err
	}
	if e.HourlyRate.Valid && e.HourlyRate.Decimal.IsNegative() {
		return domain.Validation("hourlyRate cannot be negative")
	}
	return nil
}

// emailFree fails with EMAIL_TAKEN when another employee uses email.
func emailFree(tx store.Tx, email, selfID string) error {
	other, err := tx.FindEmployeeByEmail(email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		return err
	case other.ID != selfID:
		return domain.Conflict(domain.ErrEmailTaken.Code, "email %s is already registered", email)
	}
	return nil
}

func (c *Coordinator) CreateEmployee(ctx context.Context, in EmployeeInput) (models.Employee, error) {
	if in.RestaurantID == "" {
		return models.Employee{}, domain.Validation("restaurantId is required")
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return models.Employee{}, err
	}
	emp := models.Employee{
		RestaurantID: in.RestaurantID,
		Email:        email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         domain.Role(strings.ToUpper(string(in.Role))),
		HourlyRate:   nullDecimal(in.HourlyRate),
		Phone:        in.Phone,
		IsActive:     true,
	}
	if err := validateEmployee(emp); err != nil {
		return models.Employee{}, err
	}
	if emp.PasswordHash, err = c.hashPassword(in.Password); err != nil {
		return models.Employee{}, err
	}
	_, err = c.mutate(ctx, "createEmployee", func(tx store.Tx, _ *locker, _ *outbox) error {
		if err := emailFree(tx, email, ""); err != nil {
			return err
		}
		return tx.CreateEmployee(&emp)
	})
	if err != nil {
		return models.Employee{}, err
	}
	c.log.Info("employee created", "employee_id", emp.ID, "role", emp.Role)
	return emp, nil
}

func (c *Coordinator) UpdateEmployee(ctx context.Context, id string, in EmployeeUpdate) (models.Employee, error) {
	var hash string
	if in.Password != nil {
		var err error
		if hash, err = c.hashPassword(*in.Password); err != nil {
			return models.Employee{}, err
		}
	}
	var emp models.Employee
	_, err := c.mutate(ctx, "updateEmployee", func(tx store.Tx, lk *locker, _ *outbox) error {
		if err := lk.lock(store.EntityEmployee, id); err != nil {
			return err
		}
		e, err := tx.GetEmployee(id)
		if err != nil {
			return err
		}
		if in.Email != nil {
			email, err := normalizeEmail(*in.Email)
			if err != nil {
				return err
			}
			if err := emailFree(tx, email, e.ID); err != nil {
				return err
			}
			e.Email = email
		}
		if in.FirstName != nil {
			e.FirstName = *in.FirstName
		}
		if in.LastName != nil {
			e.LastName = *in.LastName
		}
		if in.Role != nil {
			e.Role = domain.Role(strings.ToUpper(string(*in.Role)))
		}
		if in.HourlyRate != nil {
			e.HourlyRate = nullDecimal(in.HourlyRate)
		}
		if in.Phone != nil {
			e.Phone = strPtr(*in.Phone)
		}
		if hash != "" {
			e.PasswordHash = hash
		}
		if err := validateEmployee(e); err != nil {
			return err
		}
		if err := tx.SaveEmployee(&e); err != nil {
			return err
		}
		emp = e
		return nil
	})
	return emp, err
}

// DeactivateEmployee disables the account. An open shift is left for the
// manager to close.
func (c *Coordinator) DeactivateEmployee(ctx context.Context, id string) (models.Employee, error) {
	var emp models.Employee
	_, err := c.mutate(ctx, "deactivateEmployee", func(tx store.Tx, lk *locker, _ *outbox) error {
		if err := lk.lock(store.EntityEmployee, id); err != nil {
			return err
		}
		e, err := tx.GetEmployee(id)
		if err != nil {
			return err
		}
		e.IsActive = false
		if err := tx.SaveEmployee(&e); err != nil {
			return err
		}
		emp = e
		return nil
	})
	if err == nil {
		c.log.Info("employee deactivated", "employee_id", id)
	}
	return emp, err
}

// Authenticate checks staff credentials. Unknown emails, wrong passwords
// and inactive accounts all fail the same way.
func (c *Coordinator) Authenticate(ctx context.Context, email, password string) (models.Employee, error) {
	invalid := &domain.Error{Kind: domain.KindAuthentication, Message: "invalid email or password"}
	if strings.TrimSpace(email) == "" || password == "" {
		return models.Employee{}, invalid
	}
	var emp models.Employee
	err := c.read(ctx, func(tx store.Tx) error {
		var err error
		emp, err = tx.FindEmployeeByEmail(strings.ToLower(strings.TrimSpace(email)))
		return err
	})
	if errors.Is(err, domain.ErrNotFound) {
		return models.Employee{}, invalid
	}
	if err != nil {
		return models.Employee{}, err
	}
	if !emp.IsActive {
		return models.Employee{}, invalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(emp.PasswordHash), []byte(password)); err != nil {
		return models.Employee{}, invalid
	}
	return emp, nil
}

// ClockIn opens a shift. The employee row lock serializes concurrent
// clock-ins, so only one of them sees no open shift.
func (c *Coordinator) ClockIn(ctx context.Context, employeeID string) (models.Shift, []domain.Event, error) {
	var shift models.Shift
	evs, err := c.mutate(ctx, "clockIn", func(tx store.Tx, lk *locker, out *outbox) error {
		if err := lk.lock(store.EntityEmployee, employeeID); err != nil {
			return err
		}
		e, err := tx.GetEmployee(employeeID)
		if err != nil {
			return err
		}
		if !e.IsActive {
			return domain.Conflict("EMPLOYEE_INACTIVE", "employee %s is inactive", e.ID)
		}
		open, err := tx.FindOpenShift(employeeID)
		if err == nil {
			return domain.Conflict(domain.ErrShiftOpen.Code, "employee %s has been clocked in since %s",
				e.ID, open.ClockIn.Format(time.RFC3339))
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		s := models.Shift{EmployeeID: e.ID, ClockIn: c.now().UTC()}
		if err := tx.CreateShift(&s); err != nil {
			return err
		}
		s.Employee = &e
		shift = s
		out.add(domain.GeneralTopic(e.RestaurantID), domain.EventEmployeeStatus, domain.EmployeeStatusChanged{
			EmployeeID: e.ID,
			ShiftID:    s.ID,
			ClockedIn:  true,
			At:         s.ClockIn,
		})
		return nil
	})
	if err == nil {
		c.log.Info("clocked in", "employee_id", employeeID, "shift_id", shift.ID)
	}
	return shift, evs, err
}

// ClockOut closes the open shift and records the hours worked.
func (c *Coordinator) ClockOut(ctx context.Context, employeeID string) (models.Shift, []domain.Event, error) {
	var shift models.Shift
	evs, err := c.mutate(ctx, "clockOut", func(tx store.Tx, lk *locker, out *outbox) error {
		if err := lk.lock(store.EntityEmployee, employeeID); err != nil {
			return err
		}
		e, err := tx.GetEmployee(employeeID)
		if err != nil {
			return err
		}
		s, err := tx.FindOpenShift(employeeID)
		if errors.Is(err, domain.ErrNotFound) {
			return &domain.Error{
				Kind:    domain.KindNotFound,
				Code:    domain.ErrNoActiveShift.Code,
				Message: "no active shift for employee " + employeeID,
			}
		}
		if err != nil {
			return err
		}
		end := c.now().UTC()
		if end.Before(s.ClockIn) {
			end = s.ClockIn
		}
		s.ClockOut = &end
		s.HoursWorked = decimal.NewNullDecimal(decimal.NewFromFloat(end.Sub(s.ClockIn).Hours()).Round(4))
		if err := tx.SaveShift(&s); err != nil {
			return err
		}
		s.Employee = &e
		shift = s
		out.add(domain.GeneralTopic(e.RestaurantID), domain.EventEmployeeStatus, domain.EmployeeStatusChanged{
			EmployeeID: e.ID,
			ShiftID:    s.ID,
			ClockedIn:  false,
			At:         end,
		})
		return nil
	})
	if err == nil {
		c.log.Info("clocked out", "employee_id", employeeID, "hours", shift.HoursWorked.Decimal)
	}
	return shift, evs, err
}

func (c *Coordinator) GetEmployee(ctx context.Context, id string) (models.Employee, error) {
	var e models.Employee
	err := c.read(ctx, func(tx store.Tx) error {
		var err error
		e, err = tx.GetEmployee(id)
		return err
	})
	return e, err
}

func (c *Coordinator) ListEmployees(ctx context.Context, restaurantID string) ([]models.Employee, error) {
	if restaurantID == "" {
		return nil, domain.Validation("restaurantId is required")
	}
	var out []models.Employee
	err := c.read(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListEmployees(restaurantID)
		return err
	})
	return out, err
}

// ListShifts returns the employee's shifts, newest first, optionally
// bounded by clock-in time.
func (c *Coordinator) ListShifts(ctx context.Context, employeeID string, from, to *time.Time) ([]models.Shift, error) {
	if from != nil && to != nil && to.Before(*from) {
		return nil, domain.Validation("endDate is before startDate")
	}
	var out []models.Shift
	err := c.read(ctx, func(tx store.Tx) error {
		if _, err := tx.GetEmployee(employeeID); err != nil {
			return err
		}
		var err error
		out, err = tx.ListShifts(store.ShiftFilter{EmployeeID: employeeID, From: from, To: to})
		return err
	})
	return out, err
}

func (c *Coordinator) ListActiveShifts(ctx context.Context, restaurantID string) ([]models.Shift, error) {
	if restaurantID == "" {
		return nil, domain.Validation("restaurantId is required")
	}
	var out []models.Shift
	err := c.read(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListOpenShifts(restaurantID)
		return err
	})
	return out, err
}
