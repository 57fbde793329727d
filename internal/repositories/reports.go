package repositories

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EntryReportRow summarizes received quantities per day, donor and item
type EntryReportRow struct {
	DataDoacao      time.Time       `json:"data_doacao"`
	Parceiro        string          `json:"parceiro"`
	Descricao       string          `json:"descricao"`
	Unidade         *string         `json:"unidade"`
	TotalQuantidade decimal.Decimal `json:"total_quantidade"`
}

// OutflowReportRow summarizes distributed quantities per day, institution and item
type OutflowReportRow struct {
	DataSaida       time.Time       `json:"data_saida"`
	Instituicao     *string         `json:"instituicao"`
	Descricao       string          `json:"descricao"`
	Unidade         *string         `json:"unidade"`
	TotalQuantidade decimal.Decimal `json:"total_quantidade"`
}

// InstitutionReportRow summarizes distributed quantities per institution and item
type InstitutionReportRow struct {
	InstituicaoID   uint            `json:"instituicao_id"`
	Instituicao     string          `json:"instituicao"`
	Descricao       string          `json:"descricao"`
	Unidade         *string         `json:"unidade"`
	TotalQuantidade decimal.Decimal `json:"total_quantidade"`
}

// DetailedReportRow is one consumption record with its distribution context
type DetailedReportRow struct {
	IDSaida       uint            `json:"id_saida"`
	DataSaida     time.Time       `json:"data_saida"`
	Observacoes   *string         `json:"observacoes"`
	InstituicaoID *uint           `json:"instituicao_id"`
	Instituicao   *string         `json:"instituicao"`
	ItemID        uint            `json:"item_id"`
	Descricao     string          `json:"descricao"`
	Quantidade    decimal.Decimal `json:"quantidade"`
	Unidade       *string         `json:"unidade"`
	Validade      *time.Time      `json:"validade"`
}

// ReportRepository runs the read-only accountability queries
type ReportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Entries reports received quantities grouped by day, donor and item
func (r *ReportRepository) Entries(ctx context.Context, start, end time.Time) ([]EntryReportRow, error) {
	var rows []EntryReportRow
	err := r.db.WithContext(ctx).
		Table("doacoes d").
		Select("d.data_doacao AS data_doacao, doadores.nome AS parceiro, it.descricao, it.unidade, SUM(it.quantidade) AS total_quantidade").
		Joins("JOIN doadores ON d.id_doador = doadores.id").
		Joins("JOIN itens_doacao it ON it.id_doacao = d.id").
		Where("d.data_doacao BETWEEN ? AND ?", start, end).
		Group("d.data_doacao, doadores.id, doadores.nome, it.descricao, it.unidade").
		Order("d.data_doacao ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to run entries report")
	}
	return rows, nil
}

// Outflows reports distributed quantities grouped by day, institution and item
func (r *ReportRepository) Outflows(ctx context.Context, start, end time.Time) ([]OutflowReportRow, error) {
	var rows []OutflowReportRow
	err := r.db.WithContext(ctx).
		Table("saidas s").
		Select("s.data_saida AS data_saida, i.nome AS instituicao, it.descricao, it.unidade, SUM(it.quantidade) AS total_quantidade").
		Joins("LEFT JOIN instituicoes i ON s.id_instituicao = i.id").
		Joins("JOIN itens_saida it ON it.id_saida = s.id").
		Where("s.data_saida BETWEEN ? AND ?", start, end).
		Group("s.data_saida, i.id, i.nome, it.descricao, it.unidade").
		Order("s.data_saida ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to run outflows report")
	}
	return rows, nil
}

// ByInstitution reports distributed quantities per institution and item
func (r *ReportRepository) ByInstitution(ctx context.Context, start, end time.Time) ([]InstitutionReportRow, error) {
	var rows []InstitutionReportRow
	err := r.db.WithContext(ctx).
		Table("saidas s").
		Select("i.id AS instituicao_id, i.nome AS instituicao, it.descricao, it.unidade, SUM(it.quantidade) AS total_quantidade").
		Joins("JOIN instituicoes i ON s.id_instituicao = i.id").
		Joins("JOIN itens_saida it ON it.id_saida = s.id").
		Where("s.data_saida BETWEEN ? AND ?", start, end).
		Group("i.id, i.nome, it.descricao, it.unidade").
		Order("i.nome ASC, it.descricao ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to run institution report")
	}
	return rows, nil
}

// Detailed lists every consumption record with its distribution context
func (r *ReportRepository) Detailed(ctx context.Context, start, end time.Time) ([]DetailedReportRow, error) {
	var rows []DetailedReportRow
	err := r.db.WithContext(ctx).
		Table("saidas s").
		Select("s.id AS id_saida, s.data_saida AS data_saida, s.observacoes, i.id AS instituicao_id, i.nome AS instituicao, it.id AS item_id, it.descricao, it.quantidade, it.unidade, it.validade").
		Joins("LEFT JOIN instituicoes i ON s.id_instituicao = i.id").
		Joins("JOIN itens_saida it ON it.id_saida = s.id").
		Where("s.data_saida BETWEEN ? AND ?", start, end).
		Order("s.data_saida ASC, s.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to run detailed report")
	}
	return rows, nil
}
