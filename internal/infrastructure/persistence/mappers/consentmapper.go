package mappers

import (
	"github.com/orris-inc/gatekeeper/internal/domain/consent"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/persistence/models"
)

func ConsentToModel(r *consent.Record) *models.ConsentRecordModel {
	a := r.Anagraphic()
	confirmedKey := r.ConsentID()
	if r.IsConfirmed() {
		confirmedKey = models.ConfirmedKeyValue
	}
	return &models.ConsentRecordModel{
		ID:               r.ID(),
		ConsentID:        r.ConsentID(),
		UserID:           r.UserID(),
		ConfirmedKey:     confirmedKey,
		FullName:         a.FullName,
		BirthDate:        asDate(a.BirthDate),
		BirthPlace:       a.BirthPlace,
		ResidenceAddress: a.ResidenceAddress,
		OTPCode:          r.OTPCode(),
		OTPGeneratedAt:   r.OTPGeneratedAt(),
		OTPAttempts:      r.OTPAttempts(),
		IsConfirmed:      r.IsConfirmed(),
		ConfirmedAt:      r.ConfirmedAt(),
		DocumentVersion:  r.DocumentVersion(),
		DocumentHash:     r.DocumentHash(),
		Version:          r.Version(),
		CreatedAt:        r.CreatedAt(),
		UpdatedAt:        r.UpdatedAt(),
	}
}

func ConsentToDomain(model *models.ConsentRecordModel) (*consent.Record, error) {
	return consent.ReconstructRecord(consent.ReconstructParams{
		ID:        model.ID,
		ConsentID: model.ConsentID,
		UserID:    model.UserID,
		Anagraphic: consent.Anagraphic{
			FullName:         model.FullName,
			BirthDate:        asDate(model.BirthDate),
			BirthPlace:       model.BirthPlace,
			ResidenceAddress: model.ResidenceAddress,
		},
		OTPCode:         model.OTPCode,
		OTPGeneratedAt:  model.OTPGeneratedAt.UTC(),
		OTPAttempts:     model.OTPAttempts,
		IsConfirmed:     model.IsConfirmed,
		ConfirmedAt:     utcPtr(model.ConfirmedAt),
		DocumentVersion: model.DocumentVersion,
		DocumentHash:    model.DocumentHash,
		Version:         model.Version,
		CreatedAt:       model.CreatedAt.UTC(),
		UpdatedAt:       model.UpdatedAt.UTC(),
	})
}
