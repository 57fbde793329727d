package services

import (
	"context"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"example.com/foodbank/services/donations/internal/models"
)

func TestCreateDonationCreatesOneLotPerUsableItem(t *testing.T) {
	db := newTestDB(t)
	service := newDonationServiceForTest(t, db)

	donation, err := service.CreateDonation(context.Background(), &models.DonationPayload{
		Date: "2026-02-01",
		Items: []models.DonationItemPayload{
			{Descricao: "  Arroz  ", Quantidade: decimal.NewFromInt(10), Unidade: "kg", Validade: "2026-06-30"},
			{Descricao: "", Quantidade: decimal.NewFromInt(5)},
			{Descricao: "Feijão", Quantidade: decimal.Zero},
			{Descricao: "Leite", Quantidade: decimal.NewFromInt(2), Unidade: "l"},
		},
	})
	require.NoError(t, err)
	require.NotZero(t, donation.ID)
	require.Len(t, donation.Lots, 2)

	require.Equal(t, "Arroz", donation.Lots[0].Descricao)
	require.True(t, donation.Lots[0].Quantidade.Equal(decimal.NewFromInt(10)))
	require.NotNil(t, donation.Lots[0].Validade)
	require.Equal(t, "2026-06-30", donation.Lots[0].Validade.Format(models.DateLayout))

	require.Equal(t, "Leite", donation.Lots[1].Descricao)
	require.Nil(t, donation.Lots[1].Validade)

	require.EqualValues(t, 2, countRows(t, db, &models.Lot{}))
}

func TestCreateDonationRejectsReceiptWithoutUsableItems(t *testing.T) {
	db := newTestDB(t)
	service := newDonationServiceForTest(t, db)

	_, err := service.CreateDonation(context.Background(), &models.DonationPayload{})
	require.ErrorIs(t, err, ErrEmptyDonation)

	_, err = service.CreateDonation(context.Background(), &models.DonationPayload{
		Items: []models.DonationItemPayload{
			{Descricao: "   ", Quantidade: decimal.NewFromInt(3)},
			{Descricao: "Arroz", Quantidade: decimal.NewFromInt(-2)},
		},
	})
	require.ErrorIs(t, err, ErrEmptyDonation)

	require.EqualValues(t, 0, countRows(t, db, &models.Donation{}))
	require.EqualValues(t, 0, countRows(t, db, &models.Lot{}))
}

func TestCreateDonationReplaysRecordedIdempotencyKey(t *testing.T) {
	db := newTestDB(t)
	service := newDonationServiceForTest(t, db)
	key := uuid.New()

	payload := func() *models.DonationPayload {
		return &models.DonationPayload{
			IdempotencyKey: key,
			Items: []models.DonationItemPayload{
				{Descricao: "Arroz", Quantidade: decimal.NewFromInt(10), Unidade: "kg"},
			},
		}
	}

	first, err := service.CreateDonation(context.Background(), payload())
	require.NoError(t, err)

	second, err := service.CreateDonation(context.Background(), payload())
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	require.EqualValues(t, 1, countRows(t, db, &models.Donation{}))
	require.EqualValues(t, 1, countRows(t, db, &models.Lot{}))
}

func TestExtractDonationPayload(t *testing.T) {
	message := &azservicebus.ReceivedMessage{
		Body: []byte(`{"id_doador":1,"data_doacao":"2026-02-01","itens":[{"descricao":"Arroz","quantidade":3,"unidade":"kg"}]}`),
	}

	payload, err := ExtractDonationPayload(message)
	require.NoError(t, err)
	require.NotNil(t, payload.DonorID)
	require.EqualValues(t, 1, *payload.DonorID)
	require.Len(t, payload.Items, 1)
	require.Equal(t, "Arroz", payload.Items[0].Descricao)
	require.True(t, payload.Items[0].Quantidade.Equal(decimal.NewFromInt(3)))
}

func TestExtractDonationPayloadRejectsMalformedBody(t *testing.T) {
	message := &azservicebus.ReceivedMessage{Body: []byte("not json")}

	_, err := ExtractDonationPayload(message)
	require.Error(t, err)
}

func TestProcessIntakeMessageDropsPoisonPayloads(t *testing.T) {
	db := newTestDB(t)
	service := newDonationServiceForTest(t, db)

	// No usable items: redelivery cannot fix it, so the handler must not fail
	message := &azservicebus.ReceivedMessage{Body: []byte(`{"itens":[]}`)}
	require.NoError(t, service.ProcessIntakeMessage(context.Background(), message))
	require.EqualValues(t, 0, countRows(t, db, &models.Donation{}))
}

func TestProcessIntakeMessageRecordsDonation(t *testing.T) {
	db := newTestDB(t)
	service := newDonationServiceForTest(t, db)

	message := &azservicebus.ReceivedMessage{
		Body: []byte(`{"u":"` + uuid.NewString() + `","itens":[{"descricao":"Arroz","quantidade":5}]}`),
	}
	require.NoError(t, service.ProcessIntakeMessage(context.Background(), message))
	require.EqualValues(t, 1, countRows(t, db, &models.Donation{}))
	require.EqualValues(t, 1, countRows(t, db, &models.Lot{}))
}
