package handlers

import (
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"foodhub/auth"
	"foodhub/models"
)

type tokenResponse struct {
	Success bool          `json:"success"`
	Token   string        `json:"token"`
	Vendor  vendorSummary `json:"vendor"`
}

type vendorSummary struct {
	ID           primitive.ObjectID `json:"id"`
	Email        string             `json:"email"`
	BusinessName string             `json:"businessName"`
}

func writeToken(w http.ResponseWriter, status int, v *models.Vendor, token string) {
	writeJSON(w, status, tokenResponse{
		Success: true,
		Token:   token,
		Vendor:  vendorSummary{ID: v.ID, Email: v.Email, BusinessName: v.BusinessName},
	})
}

// RegisterHandler creates a vendor account and returns a token for it.
func RegisterHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := readPayload(r, d.Log)
		if err != nil {
			writeVendorError(w, d.Log, r, err)
			return
		}

		var reg auth.Registration
		reg.Email, _ = p.str("email")
		reg.Password, _ = p.str("password")
		reg.BusinessName, _ = p.str("businessName")
		reg.Phone, _ = p.str("phone")
		p.object("address", &reg.Address)

		v, token, err := d.Accounts.Register(r.Context(), reg)
		if err != nil {
			writeVendorError(w, d.Log, r, err)
			return
		}
		writeToken(w, http.StatusCreated, v, token)
	}
}

// LoginHandler exchanges credentials for a token.
func LoginHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := readPayload(r, d.Log)
		if err != nil {
			writeVendorError(w, d.Log, r, err)
			return
		}
		email, _ := p.str("email")
		password, _ := p.str("password")
		if email == "" || password == "" {
			writeJSON(w, http.StatusBadRequest, vendorBody{Message: "Please provide an email and password"})
			return
		}

		v, token, err := d.Accounts.Login(r.Context(), email, password)
		if err != nil {
			writeVendorError(w, d.Log, r, err)
			return
		}
		writeToken(w, http.StatusOK, v, token)
	}
}

// MeHandler returns the calling vendor.
func MeHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendor, _ := auth.VendorFrom(r.Context())
		writeJSON(w, http.StatusOK, vendorBody{Success: true, Data: vendor})
	}
}

// ProfileHandler updates business name, phone and address.
func ProfileHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendor, _ := auth.VendorFrom(r.Context())
		p, err := readPayload(r, d.Log)
		if err != nil {
			writeVendorError(w, d.Log, r, err)
			return
		}

		var upd auth.ProfileUpdate
		if v, ok := p.str("businessName"); ok {
			upd.BusinessName = &v
		}
		if v, ok := p.str("phone"); ok {
			upd.Phone = &v
		}
		var addr models.Address
		if p.object("address", &addr) {
			upd.Address = &addr
		}

		updated, err := d.Accounts.UpdateProfile(r.Context(), vendor.ID, upd)
		if err != nil {
			writeVendorError(w, d.Log, r, err)
			return
		}
		writeJSON(w, http.StatusOK, vendorBody{Success: true, Data: updated})
	}
}

// ProfileImageHandler stores an uploaded profile image.
func ProfileImageHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendor, _ := auth.VendorFrom(r.Context())
		p, err := readPayload(r, d.Log)
		if err != nil {
			writeVendorError(w, d.Log, r, err)
			return
		}
		fh := p.file("profileImage")
		if fh == nil {
			writeJSON(w, http.StatusBadRequest, vendorBody{Message: "Please upload a file"})
			return
		}

		path, err := saveUpload(r.Context(), d.Uploads, fh)
		if err != nil {
			writeVendorError(w, d.Log, r, err)
			return
		}
		updated, err := d.Accounts.SetProfileImage(r.Context(), vendor.ID, path)
		if err != nil {
			writeVendorError(w, d.Log, r, err)
			return
		}
		writeJSON(w, http.StatusOK, vendorBody{Success: true, Data: updated})
	}
}

// LogoutHandler acknowledges a logout. Tokens are stateless; the client
// discards its copy.
func LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, vendorBody{Success: true, Message: "Logged out successfully"})
	}
}
