package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"clinic-booking-server/internal/middleware"
	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/utils"
)

// ServiceHandler manages the clinic's service catalog.
type ServiceHandler struct {
	DB *gorm.DB
}

// NewServiceHandler creates a new ServiceHandler.
func NewServiceHandler(db *gorm.DB) *ServiceHandler {
	return &ServiceHandler{DB: db}
}

// CreateServiceRequest represents the request body for adding a service.
type CreateServiceRequest struct {
	Name            string  `json:"name" binding:"required"`
	Description     string  `json:"description"`
	Price           float64 `json:"price" binding:"required,gt=0"`
	DurationMinutes int     `json:"durationMinutes"`
}

// CreateService adds a service to the catalog (admin).
func (h *ServiceHandler) CreateService(c *gin.Context) {
	var req CreateServiceRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	service := models.Service{
		Name:            req.Name,
		Description:     req.Description,
		Price:           req.Price,
		DurationMinutes: req.DurationMinutes,
		IsActive:        true,
	}
	if service.DurationMinutes == 0 {
		service.DurationMinutes = 60
	}

	if err := h.DB.Create(&service).Error; err != nil {
		utils.InternalServerError(c, "Failed to create service: "+err.Error())
		return
	}

	utils.Created(c, "Service created successfully", service)
}

// GetServices lists services. Admins see the full catalog; everyone else
// only sees active, bookable services.
func (h *ServiceHandler) GetServices(c *gin.Context) {
	role, _ := middleware.GetUserRoleFromContext(c)

	query := h.DB.Order("name asc")
	if role != models.RoleAdmin {
		query = query.Where("is_active = ?", true)
	}

	var services []models.Service
	if err := query.Find(&services).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch services: "+err.Error())
		return
	}

	utils.Success(c, "Services fetched successfully", services)
}

// GetServiceByID fetches a single service.
func (h *ServiceHandler) GetServiceByID(c *gin.Context) {
	serviceID := c.Param("id")

	var service models.Service
	if err := h.DB.First(&service, "id = ?", serviceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Service not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	utils.Success(c, "Service fetched successfully", service)
}

// UpdateServiceRequest represents the request body for editing a service.
type UpdateServiceRequest struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Price           *float64 `json:"price"`
	DurationMinutes *int     `json:"durationMinutes"`
	IsActive        *bool    `json:"isActive"`
}

// UpdateService edits a catalog entry (admin).
func (h *ServiceHandler) UpdateService(c *gin.Context) {
	serviceID := c.Param("id")

	var req UpdateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	var service models.Service
	if err := h.DB.First(&service, "id = ?", serviceID).Error; err != nil {
		utils.NotFound(c, "Service not found")
		return
	}

	if req.Name != "" {
		service.Name = req.Name
	}
	if req.Description != "" {
		service.Description = req.Description
	}
	if req.Price != nil {
		service.Price = *req.Price
	}
	if req.DurationMinutes != nil {
		service.DurationMinutes = *req.DurationMinutes
	}
	if req.IsActive != nil {
		service.IsActive = *req.IsActive
	}

	if err := h.DB.Save(&service).Error; err != nil {
		utils.InternalServerError(c, "Failed to update service: "+err.Error())
		return
	}

	utils.Success(c, "Service updated successfully", service)
}

// DeleteService retires a service. Services with existing appointments are
// deactivated instead of deleted so history stays intact.
func (h *ServiceHandler) DeleteService(c *gin.Context) {
	serviceID := c.Param("id")

	var service models.Service
	if err := h.DB.First(&service, "id = ?", serviceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Service not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	var appointmentCount int64
	if err := h.DB.Model(&models.Appointment{}).Where("service_id = ?", serviceID).Count(&appointmentCount).Error; err != nil {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}
	if appointmentCount > 0 {
		service.IsActive = false
		if err := h.DB.Save(&service).Error; err != nil {
			utils.InternalServerError(c, "Failed to deactivate service: "+err.Error())
			return
		}
		utils.Success(c, "Service has appointments and was deactivated instead of deleted", service)
		return
	}

	if err := h.DB.Delete(&service).Error; err != nil {
		utils.InternalServerError(c, "Failed to delete service: "+err.Error())
		return
	}

	utils.Success(c, "Service deleted successfully", nil)
}
