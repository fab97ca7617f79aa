package analytics

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound indicates the requested period or zone does not exist.
	ErrNotFound = errors.New("analytics: not found")
	// ErrInvalidScope indicates the filter combination cannot be resolved.
	ErrInvalidScope = errors.New("analytics: invalid scope")
	// ErrForbidden indicates the caller may not read the requested zone.
	ErrForbidden = errors.New("analytics: forbidden")
)

// PeriodStatus enumerates period lifecycle values.
type PeriodStatus string

const (
	// PeriodDraft marks a period still being planned.
	PeriodDraft PeriodStatus = "Draft"
	// PeriodActive marks the single running period of a zone.
	PeriodActive PeriodStatus = "Active"
	// PeriodClosed marks a finished period.
	PeriodClosed PeriodStatus = "Closed"
)

// ShiftType enumerates the contractual shift of a promoter within a period.
type ShiftType string

const (
	ShiftFullTime ShiftType = "FullTime"
	ShiftPartTime ShiftType = "PartTime"
	// ShiftUnassigned groups sales whose promoter has no assignment in the period.
	ShiftUnassigned ShiftType = "Unassigned"
)

// PaymentCategory groups payment methods for breakdowns.
type PaymentCategory string

const (
	PaymentCash   PaymentCategory = "Cash"
	PaymentDebit  PaymentCategory = "Debit"
	PaymentCredit PaymentCategory = "Credit"
)

// SaleStatus enumerates the review state of a sale.
type SaleStatus string

const (
	SaleLoaded   SaleStatus = "Loaded"
	SalePending  SaleStatus = "Pending"
	SaleRejected SaleStatus = "Rejected"
)

// Zone is a geographic sales area.
type Zone struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"nombre"`
}

// Period is a time-boxed sales campaign for one zone.
type Period struct {
	ID            uuid.UUID    `json:"id"`
	ZoneID        uuid.UUID    `json:"zona_id"`
	ZoneName      string       `json:"zona_nombre"`
	Name          string       `json:"nombre"`
	StartDate     time.Time    `json:"fecha_inicio"`
	EndDate       time.Time    `json:"fecha_fin"`
	OperativeDays int          `json:"dias_operativos"`
	Status        PeriodStatus `json:"estado"`
}

// AssignmentObjective is one promoter-period assignment together with the
// number of journeys the promoter spent on non-operative novelties.
type AssignmentObjective struct {
	PromoterID       uuid.UUID
	PromoterName     string
	PeriodID         uuid.UUID
	Shift            ShiftType
	Objective        decimal.Decimal
	OperativeDays    int
	NonOperativeDays int
}

// SalesBucket is one cell of the payment category x shift grid.
type SalesBucket struct {
	Category PaymentCategory
	Shift    ShiftType
	Amount   decimal.Decimal
	Count    int64
}

// AssignmentDay is the total sold by one promoter on one journey.
type AssignmentDay struct {
	AssignmentID uuid.UUID
	Date         time.Time
	Shift        ShiftType
	Amount       decimal.Decimal
}

// PromoterSales aggregates sales in scope for a promoter.
type PromoterSales struct {
	PromoterID   uuid.UUID
	PromoterName string
	Amount       decimal.Decimal
	Count        int64
}

// DailyPoint is the sales total of one calendar day.
type DailyPoint struct {
	Date   time.Time       `json:"fecha"`
	Amount decimal.Decimal `json:"total"`
	Count  int64           `json:"fichas"`
}

// LabelCount is a labelled sales aggregate used for plan and payment method tops.
type LabelCount struct {
	Label  string          `json:"nombre"`
	Count  int64           `json:"cantidad"`
	Amount decimal.Decimal `json:"monto"`
}

// JourneySummary describes one loaded journey of a period.
type JourneySummary struct {
	ID         uuid.UUID       `json:"id"`
	Date       time.Time       `json:"fecha"`
	CreatedBy  string          `json:"creador"`
	Attendance int             `json:"asistencia"`
	Amount     decimal.Decimal `json:"venta_total"`
	Count      int64           `json:"fichas"`
}
