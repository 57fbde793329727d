package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DateLayout is the wire format for all date fields (dates only, no time part).
const DateLayout = "2006-01-02"

// Donor represents a registered donation partner
type Donor struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Nome      string         `gorm:"not null" json:"nome"`
	Documento *string        `json:"documento"`
	Telefone  *string        `json:"telefone"`
	Email     *string        `json:"email"`
	Endereco  *string        `json:"endereco"`
	Donations []Donation     `gorm:"foreignKey:DonorID" json:"-"`
}

// TableName keeps the original schema name
func (Donor) TableName() string { return "doadores" }

// Institution represents a partner institution that receives distributions
type Institution struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
	Nome          string         `gorm:"not null" json:"nome"`
	RazaoSocial   *string        `gorm:"column:razao_social" json:"razao_social"`
	CNPJ          *string        `gorm:"column:cnpj" json:"cnpj"`
	Telefone      *string        `json:"telefone"`
	Endereco      *string        `json:"endereco"`
	Distributions []Distribution `gorm:"foreignKey:InstitutionID" json:"-"`
}

// TableName keeps the original schema name
func (Institution) TableName() string { return "instituicoes" }

// Donation is one receipt of goods from a donor; it owns the lots it created
type Donation struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	DonorID   *uint          `gorm:"column:id_doador" json:"id_doador"`
	Date      *time.Time     `gorm:"column:data_doacao;type:date" json:"data_doacao"`
	Notes     *string        `gorm:"column:observacoes" json:"observacoes"`
	// Dedup key for receipts arriving through the intake queue, where
	// at-least-once delivery can replay the same donation.
	IdempotencyKey uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"idempotency_key"`
	Lots           []Lot     `gorm:"foreignKey:DonationID" json:"itens,omitempty"`
}

// TableName keeps the original schema name
func (Donation) TableName() string { return "doacoes" }

// Lot is a physical batch of a donated item. Quantidade only ever decreases
// after creation, via distribution consumption, and never below zero.
// Exhausted lots stay in the table as history.
type Lot struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DonationID uint            `gorm:"column:id_doacao;not null;index" json:"id_doacao"`
	Descricao  string          `gorm:"not null;index:idx_lot_desc" json:"descricao"`
	Quantidade decimal.Decimal `gorm:"type:numeric(12,3);not null" json:"quantidade"`
	Unidade    *string         `json:"unidade"`
	Validade   *time.Time      `gorm:"type:date" json:"validade"`
}

// TableName keeps the original schema name
func (Lot) TableName() string { return "itens_doacao" }

// HasStock reports whether the lot can still be drawn from
func (l *Lot) HasStock() bool {
	return l.Quantidade.GreaterThan(decimal.Zero)
}

// IsExpired reports whether the lot expired before the given day
func (l *Lot) IsExpired(today time.Time) bool {
	if l.Validade == nil {
		return false
	}
	return l.Validade.Before(today.Truncate(24 * time.Hour))
}

// Distribution is one outgoing transfer to an institution. It is only ever
// created inside a committed allocation transaction and is immutable after.
type Distribution struct {
	ID             uint               `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt     `gorm:"index" json:"-"`
	InstitutionID  *uint              `gorm:"column:id_instituicao" json:"id_instituicao"`
	Date           *time.Time         `gorm:"column:data_saida;type:date" json:"data_saida"`
	Notes          *string            `gorm:"column:observacoes" json:"observacoes"`
	IdempotencyKey uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex" json:"idempotency_key"`
	IsIndexed      bool               `gorm:"not null;default:false" json:"-"`
	Items          []DistributionItem `gorm:"foreignKey:DistributionID" json:"itens,omitempty"`
}

// TableName keeps the original schema name
func (Distribution) TableName() string { return "saidas" }

// DistributionItem is the audit record of one lot draw within a distribution.
// It snapshots the expiry of the source lot rather than referencing the lot,
// so the trail identifies the expiry cohort that was consumed.
type DistributionItem struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	DistributionID uint            `gorm:"column:id_saida;not null;index" json:"id_saida"`
	Descricao      string          `gorm:"not null" json:"descricao"`
	Quantidade     decimal.Decimal `gorm:"type:numeric(12,3);not null" json:"quantidade"`
	Unidade        *string         `json:"unidade"`
	Validade       *time.Time      `gorm:"type:date" json:"validade"`
}

// TableName keeps the original schema name
func (DistributionItem) TableName() string { return "itens_saida" }

// DonationItemPayload is one lot-to-be inside a donation request
type DonationItemPayload struct {
	Descricao  string          `json:"descricao"`
	Quantidade decimal.Decimal `json:"quantidade"`
	Unidade    string          `json:"unidade"`
	Validade   string          `json:"validade"`
}

// DonationPayload is a donation receipt, from HTTP or from the intake queue
type DonationPayload struct {
	IdempotencyKey uuid.UUID             `json:"u"`
	DonorID        *uint                 `json:"id_doador"`
	Date           string                `json:"data_doacao"`
	Notes          string                `json:"observacoes"`
	Items          []DonationItemPayload `json:"itens"`
}

// DemandLinePayload is one requested (description, quantity) pair of a distribution
type DemandLinePayload struct {
	Descricao  string          `json:"descricao"`
	Quantidade decimal.Decimal `json:"quantidade"`
	Unidade    string          `json:"unidade"`
}

// DistributionPayload is a distribution request
type DistributionPayload struct {
	IdempotencyKey uuid.UUID           `json:"u"`
	InstitutionID  *uint               `json:"id_instituicao"`
	Date           string              `json:"data_saida"`
	Notes          string              `json:"observacoes"`
	Items          []DemandLinePayload `json:"itens"`
}

// ParseDate parses an optional wire date, empty means absent
func ParseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid date %q", s)
	}
	return &t, nil
}

// SetupModels configures GORM models and runs migrations
func SetupModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Donor{},
		&Institution{},
		&Donation{},
		&Lot{},
		&Distribution{},
		&DistributionItem{},
	)
	if err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}

	return nil
}
