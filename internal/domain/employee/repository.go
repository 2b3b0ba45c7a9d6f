package employee

import "context"

type EmployeeRepository interface {
	// GetByCode retrieves an employee by their employee code.
	GetByCode(ctx context.Context, code string) (Employee, error)

	// GetByID retrieves an employee by ID.
	GetByID(ctx context.Context, id string) (Employee, error)
}
