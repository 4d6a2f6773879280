package models

import "time"

// ===== REQUEST DTOs =====

// CreateItemRequest DTO para alta de item
type CreateItemRequest struct {
	Name         string  `json:"name" validate:"required,max=200"`
	Category     *string `json:"category" validate:"omitempty,max=100"`
	MinimumStock *int    `json:"minimum_stock" validate:"omitempty,gte=0"`
}

// UpdateItemRequest DTO para edición de item (solo campos presentes)
type UpdateItemRequest struct {
	Name         *string `json:"name" validate:"omitempty,min=1,max=200"`
	Category     *string `json:"category" validate:"omitempty,max=100"`
	MinimumStock *int    `json:"minimum_stock" validate:"omitempty,gte=0"`
}

// ReceiptRequest DTO para entrada de stock (IN)
type ReceiptRequest struct {
	Item       string  `json:"item" validate:"required"`
	Quantity   int     `json:"quantity" validate:"gt=0"`
	Date       *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Source     string  `json:"source" validate:"required"`
	ExpiryDate *string `json:"expiry_date" validate:"omitempty,datetime=2006-01-02"`
	Batch      *string `json:"batch"`
	Note       *string `json:"note"`
	Actor      string  `json:"-"` // Se obtiene del contexto de autenticación
}

// IssueRequest DTO para salida de stock (OUT)
type IssueRequest struct {
	Item        string  `json:"item" validate:"required"`
	Quantity    int     `json:"quantity" validate:"gt=0"`
	Date        *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Destination string  `json:"destination" validate:"required"`
	ExpiryDate  *string `json:"expiry_date" validate:"omitempty,datetime=2006-01-02"`
	Batch       *string `json:"batch"`
	Note        *string `json:"note"`
	Actor       string  `json:"-"` // Se obtiene del contexto de autenticación
}

// TransactionQuery parámetros de búsqueda de transacciones
type TransactionQuery struct {
	From      *string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To        *string `form:"to" validate:"omitempty,datetime=2006-01-02"`
	Direction *string `form:"direction" validate:"omitempty,oneof=IN OUT"`
	Item      *string `form:"item"`
}

// LoginRequest DTO para login
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordRequest DTO para cambio de contraseña
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// ===== RESPONSE DTOs =====

// RecordResponse respuesta para entradas y salidas registradas
type RecordResponse struct {
	TransactionID int64     `json:"transaction_id"`
	Item          string    `json:"item"`
	Direction     Direction `json:"direction"`
	Quantity      int       `json:"quantity"`
	Batch         *string   `json:"batch"`
	CurrentStock  int       `json:"current_stock"`
	Timestamp     string    `json:"timestamp"`
}

// LoginResponse respuesta de login
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	Username  string `json:"username"`
}

// BackupInfo describe un archivo de backup disponible
type BackupInfo struct {
	Filename string    `json:"filename"`
	Path     string    `json:"-"`
	Created  time.Time `json:"created"`
	Size     int64     `json:"size"`
}
