package repository

import (
	"context"
	"strings"

	"github.com/sjperalta/parktime-api/internal/models"
	"gorm.io/gorm"
)

// EmployeeRepository defines the interface for employee data access
type EmployeeRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Employee, error)
	FindByUsername(ctx context.Context, username string) (*models.Employee, error)
	Create(ctx context.Context, employee *models.Employee) error
	Update(ctx context.Context, employee *models.Employee) error
	SetPasswordHash(ctx context.Context, id uint, hash string) error
	List(ctx context.Context, query *ListQuery) ([]models.Employee, int64, error)
	DirectReports(ctx context.Context, managerID uint, activeOnly bool) ([]models.Employee, error)
	ManagerOf(ctx context.Context, id uint) (*uint, error)
}

type employeeRepository struct {
	db *gorm.DB
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(db *gorm.DB) EmployeeRepository {
	return &employeeRepository{db: db}
}

func (r *employeeRepository) FindByID(ctx context.Context, id uint) (*models.Employee, error) {
	var employee models.Employee
	if err := r.db.WithContext(ctx).First(&employee, id).Error; err != nil {
		return nil, err
	}
	return &employee, nil
}

func (r *employeeRepository) FindByUsername(ctx context.Context, username string) (*models.Employee, error) {
	var employee models.Employee
	err := r.db.WithContext(ctx).
		Where("username = ?", models.NormalizeUsername(username)).
		First(&employee).Error
	if err != nil {
		return nil, err
	}
	return &employee, nil
}

func (r *employeeRepository) Create(ctx context.Context, employee *models.Employee) error {
	return translateError(r.db.WithContext(ctx).Create(employee).Error, "employee")
}

func (r *employeeRepository) Update(ctx context.Context, employee *models.Employee) error {
	return translateError(r.db.WithContext(ctx).Save(employee).Error, "employee")
}

func (r *employeeRepository) SetPasswordHash(ctx context.Context, id uint, hash string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Employee{}).
		Where("id = ?", id).
		Update("password_hash", hash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

var employeeSortColumns = map[string]bool{
	"username": true, "last_name": true, "first_name": true, "display_name": true, "role": true, "created_at": true,
}

func (r *employeeRepository) List(ctx context.Context, query *ListQuery) ([]models.Employee, int64, error) {
	var employees []models.Employee
	var total int64

	if query == nil {
		query = NewListQuery()
	}
	db := r.db.WithContext(ctx).Model(&models.Employee{})

	if s := strings.TrimSpace(query.Search); s != "" {
		search := "%" + strings.ToLower(s) + "%"
		db = db.Where("LOWER(username) LIKE ? OR LOWER(display_name) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?",
			search, search, search, search)
	}
	if role := query.Filters["role"]; role != "" {
		db = db.Where("role = ?", role)
	}
	switch query.Filters["active"] {
	case "true":
		db = db.Where("is_active = ?", true)
	case "false":
		db = db.Where("is_active = ?", false)
	}
	if managerID := query.Filters["manager_id"]; managerID != "" {
		db = db.Where("manager_id = ?", managerID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = db.Order(query.orderBy(employeeSortColumns, "last_name ASC, first_name ASC, id ASC"))
	if query.PerPage > 0 {
		page := query.Page
		if page < 1 {
			page = 1
		}
		db = db.Offset((page - 1) * query.PerPage).Limit(query.PerPage)
	}

	err := db.Find(&employees).Error
	return employees, total, err
}

func (r *employeeRepository) DirectReports(ctx context.Context, managerID uint, activeOnly bool) ([]models.Employee, error) {
	var employees []models.Employee
	db := r.db.WithContext(ctx).Where("manager_id = ?", managerID)
	if activeOnly {
		db = db.Where("is_active = ?", true)
	}
	err := db.Order("last_name ASC, first_name ASC, id ASC").Find(&employees).Error
	return employees, err
}

func (r *employeeRepository) ManagerOf(ctx context.Context, id uint) (*uint, error) {
	var employee models.Employee
	err := r.db.WithContext(ctx).
		Select("id", "manager_id").
		First(&employee, id).Error
	if err != nil {
		return nil, err
	}
	return employee.ManagerID, nil
}
