package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"foodhub/database"
	"foodhub/models"
)

// ErrValidation matches every FieldError.
var ErrValidation = errors.New("invalid vendor")

var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

const (
	minPasswordLength   = 6
	maxBusinessNameSize = 50
)

// Registration is the sign-up payload.
type Registration struct {
	Email        string
	Password     string
	BusinessName string
	Phone        string
	Address      models.Address
}

// ProfileUpdate carries the editable profile fields. Nil fields are left
// unchanged.
type ProfileUpdate struct {
	BusinessName *string
	Phone        *string
	Address      *models.Address
}

// Accounts manages vendor records.
type Accounts struct {
	vendors database.Collection[models.Vendor]
	tokens  *Tokens
	log     *zap.Logger
}

func NewAccounts(vendors database.Collection[models.Vendor], tokens *Tokens, log *zap.Logger) *Accounts {
	return &Accounts{vendors: vendors, tokens: tokens, log: log.Named("auth")}
}

func byEmail(email string) models.Query {
	return models.AllOf(models.Eq(models.FieldEmail, email))
}

func byID(id primitive.ObjectID) models.Query {
	return models.AllOf(models.EqID(models.FieldStorageID, id.Hex()))
}

// FieldError is a rejected registration or profile field. It matches
// ErrValidation and reads as the bare message shown to the vendor.
type FieldError struct {
	Message string
}

func (e *FieldError) Error() string { return e.Message }

func (e *FieldError) Is(target error) bool { return target == ErrValidation }

func invalid(format string, args ...any) error {
	return &FieldError{Message: fmt.Sprintf(format, args...)}
}

func validateProfile(businessName, phone string, addr models.Address) error {
	var errs []error
	switch {
	case businessName == "":
		errs = append(errs, invalid("Please provide a business name"))
	case len(businessName) > maxBusinessNameSize:
		errs = append(errs, invalid("Business name cannot be more than %d characters", maxBusinessNameSize))
	}
	if phone == "" {
		errs = append(errs, invalid("Please provide a phone number"))
	}
	if addr.Street == "" {
		errs = append(errs, invalid("Please provide a street address"))
	}
	if addr.City == "" {
		errs = append(errs, invalid("Please provide a city"))
	}
	if addr.State == "" {
		errs = append(errs, invalid("Please provide a state"))
	}
	if addr.ZipCode == "" {
		errs = append(errs, invalid("Please provide a zip code"))
	}
	return errors.Join(errs...)
}

// Register creates a vendor account and returns it with a fresh token.
func (a *Accounts) Register(ctx context.Context, reg Registration) (*models.Vendor, string, error) {
	reg.Email = strings.ToLower(strings.TrimSpace(reg.Email))
	reg.BusinessName = strings.TrimSpace(reg.BusinessName)
	reg.Phone = strings.TrimSpace(reg.Phone)
	if reg.Address.Country == "" {
		reg.Address.Country = models.DefaultCountry
	}

	var errs []error
	switch {
	case reg.Email == "":
		errs = append(errs, invalid("Please provide an email"))
	case !emailPattern.MatchString(reg.Email):
		errs = append(errs, invalid("Please provide a valid email"))
	}
	if len(reg.Password) < minPasswordLength {
		errs = append(errs, invalid("Password must be at least %d characters", minPasswordLength))
	}
	errs = append(errs, validateProfile(reg.BusinessName, reg.Phone, reg.Address))
	if err := errors.Join(errs...); err != nil {
		return nil, "", err
	}

	_, err := a.vendors.FindOne(ctx, byEmail(reg.Email))
	if err == nil {
		return nil, "", ErrEmailTaken
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, "", err
	}

	digest, err := HashPassword(reg.Password)
	if err != nil {
		return nil, "", err
	}
	v := &models.Vendor{
		Email:        reg.Email,
		Password:     digest,
		BusinessName: reg.BusinessName,
		Phone:        reg.Phone,
		Address:      reg.Address,
		ProfileImage: models.DefaultProfileImage,
		IsActive:     true,
	}
	if err := a.vendors.Insert(ctx, v); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", err
	}

	token, err := a.tokens.Sign(v.ID)
	if err != nil {
		return nil, "", err
	}
	a.log.Info("vendor registered", zap.String("vendor", v.ID.Hex()))
	return v, token, nil
}

// Login checks credentials and returns the vendor with a fresh token.
func (a *Accounts) Login(ctx context.Context, email, password string) (*models.Vendor, string, error) {
	v, err := a.vendors.FindOne(ctx, byEmail(strings.ToLower(strings.TrimSpace(email))))
	if errors.Is(err, database.ErrNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}
	if !CheckPassword(v.Password, password) {
		return nil, "", ErrInvalidCredentials
	}
	token, err := a.tokens.Sign(v.ID)
	if err != nil {
		return nil, "", err
	}
	return v, token, nil
}

// Get loads a vendor by storage id.
func (a *Accounts) Get(ctx context.Context, id primitive.ObjectID) (*models.Vendor, error) {
	return a.vendors.FindOne(ctx, byID(id))
}

// Authenticate verifies token and loads the vendor it names.
func (a *Accounts) Authenticate(ctx context.Context, token string) (*models.Vendor, error) {
	id, err := a.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	v, err := a.Get(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: vendor %s no longer exists", ErrInvalidToken, id.Hex())
	}
	return v, err
}

// UpdateProfile applies the non-nil fields of upd.
func (a *Accounts) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) (*models.Vendor, error) {
	v, err := a.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.BusinessName != nil {
		v.BusinessName = strings.TrimSpace(*upd.BusinessName)
	}
	if upd.Phone != nil {
		v.Phone = strings.TrimSpace(*upd.Phone)
	}
	if upd.Address != nil {
		v.Address = *upd.Address
		if v.Address.Country == "" {
			v.Address.Country = models.DefaultCountry
		}
	}
	if err := validateProfile(v.BusinessName, v.Phone, v.Address); err != nil {
		return nil, err
	}
	if err := a.vendors.Replace(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// SetProfileImage records path as the vendor's profile image.
func (a *Accounts) SetProfileImage(ctx context.Context, id primitive.ObjectID, path string) (*models.Vendor, error) {
	v, err := a.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	v.ProfileImage = path
	if err := a.vendors.Replace(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}
