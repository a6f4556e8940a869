package service

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"account-service/internal/audit"
	"account-service/internal/encryption"
	"account-service/internal/media"
	"account-service/internal/models"
	"account-service/internal/repository/scylla"
	"account-service/internal/search"
	"account-service/internal/util"

	"github.com/google/uuid"
)

// ProfileUpdateInput is a sparse update: nil fields are left untouched.
type ProfileUpdateInput struct {
	FirstName          *string `json:"firstName"`
	MiddleName         *string `json:"middleName"`
	LastName           *string `json:"lastName"`
	PhoneNumber        *string `json:"phoneNumber"`
	DateOfBirth        *string `json:"dateOfBirth"`
	ResidentialAddress *string `json:"residentialAddress"`
	MaritalStatus      *string `json:"maritalStatus"`
	Country            *string `json:"country"`
	City               *string `json:"city"`
	State              *string `json:"state"`
	Profession         *string `json:"profession"`
	Gender             *string `json:"gender"`
	EmploymentStatus   *string `json:"employmentStatus"`
	NationalID         *string `json:"nationalId"`
}

// PhotoUpload points at the temporary file the request body was spooled
// to. The service owns its cleanup.
type PhotoUpload struct {
	TempPath string
	Filename string
	Size     int64
}

type ProfileService struct {
	accounts  scylla.AccountRepository
	photos    media.PhotoStore
	encryptor *encryption.Manager
	recorder  audit.Recorder
	indexer   search.Indexer
	clock     Clock
}

func NewProfileService(
	accounts scylla.AccountRepository,
	photos media.PhotoStore,
	encryptor *encryption.Manager,
	recorder audit.Recorder,
	indexer search.Indexer,
	clock Clock,
) *ProfileService {
	return &ProfileService{
		accounts:  accounts,
		photos:    photos,
		encryptor: encryptor,
		recorder:  recorder,
		indexer:   indexer,
		clock:     clock,
	}
}

// UpdateProfile validates and merges the sparse update into the actor's
// account. A photo, when present, is uploaded first and its temp file is
// removed no matter how the rest of the update goes.
func (s *ProfileService) UpdateProfile(ctx context.Context, actorID uuid.UUID, in *ProfileUpdateInput, photo *PhotoUpload) (*models.Account, error) {
	if photo != nil {
		defer func() {
			if err := os.Remove(photo.TempPath); err != nil && !os.IsNotExist(err) {
				util.Warn("Failed to remove temporary photo file",
					zap.String("path", photo.TempPath),
					zap.Error(err))
			}
		}()
	}

	if err := validateProfileUpdate(in); err != nil {
		return nil, err
	}

	account, err := s.accounts.GetAccountByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, scylla.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	if photo != nil {
		url, err := s.uploadPhoto(ctx, account.ID, photo)
		if err != nil {
			return nil, err
		}
		// old reference is overwritten, not retained
		account.Photo = url
	}

	s.merge(account, in)

	if in.NationalID != nil {
		blob, keyID, err := s.encryptor.EncryptField(ctx, *in.NationalID)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt national id: %w", err)
		}
		account.NationalIDEncrypted = blob
		account.NationalIDKeyID = keyID
	}

	if err := s.accounts.UpdateProfile(ctx, account); err != nil {
		return nil, err
	}

	if s.indexer != nil {
		if err := s.indexer.IndexAccount(ctx, account); err != nil {
			util.Warn("Failed to re-index account",
				zap.String("account_id", account.ID.String()),
				zap.Error(err))
		}
	}

	if s.recorder != nil {
		s.recorder.Record(ctx, &models.AuditEvent{
			AccountID: account.ID,
			EventType: models.EventProfileUpdated,
			Email:     account.Email,
			EventTime: s.clock.Now(),
		})
	}

	util.Info("Profile updated", zap.String("account_id", account.ID.String()))
	return account, nil
}

func (s *ProfileService) uploadPhoto(ctx context.Context, accountID uuid.UUID, photo *PhotoUpload) (string, error) {
	f, err := os.Open(photo.TempPath)
	if err != nil {
		return "", fmt.Errorf("failed to open photo temp file: %w", err)
	}
	defer f.Close()

	return s.photos.UploadPhoto(ctx, accountID, photo.Filename, photo.Size, f)
}

func (s *ProfileService) merge(account *models.Account, in *ProfileUpdateInput) {
	if in.FirstName != nil {
		account.FirstName = *in.FirstName
	}
	if in.MiddleName != nil {
		account.MiddleName = *in.MiddleName
	}
	if in.LastName != nil {
		account.LastName = *in.LastName
	}
	if in.PhoneNumber != nil {
		account.PhoneNumber = *in.PhoneNumber
	}
	if in.DateOfBirth != nil {
		account.DateOfBirth = *in.DateOfBirth
	}
	if in.ResidentialAddress != nil {
		account.ResidentialAddress = util.SanitizeInput(*in.ResidentialAddress)
	}
	if in.MaritalStatus != nil {
		account.MaritalStatus = *in.MaritalStatus
	}
	if in.Country != nil {
		account.Country = *in.Country
	}
	if in.City != nil {
		account.City = *in.City
	}
	if in.State != nil {
		account.State = *in.State
	}
	if in.Profession != nil {
		account.Profession = util.SanitizeInput(*in.Profession)
	}
	if in.Gender != nil {
		account.Gender = *in.Gender
	}
	if in.EmploymentStatus != nil {
		account.EmploymentStatus = *in.EmploymentStatus
	}
}
