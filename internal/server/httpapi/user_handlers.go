package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/webapp/internal/common"
	"github.com/dmitrijs2005/webapp/internal/server/models"
	"github.com/dmitrijs2005/webapp/internal/server/services"
)

// maxJSONBody bounds account request bodies.
const maxJSONBody = 64 << 10

type createUserRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Password  string `json:"password"`
}

type userResponse struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	AccountCreated time.Time `json:"account_created"`
	AccountUpdated time.Time `json:"account_updated"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:             u.ID,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		AccountCreated: u.AccountCreated,
		AccountUpdated: u.AccountUpdated,
	}
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	u, err := s.users.Create(r.Context(), services.CreateUserInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

func (s *Server) handleGetSelf(w http.ResponseWriter, r *http.Request) {
	if r.URL.RawQuery != "" || hasBody(r) {
		writeError(w, http.StatusBadRequest, "unexpected_parameters")
		return
	}

	id, _ := IdentityFrom(r.Context())
	u, err := s.users.GetByID(r.Context(), id.AccountID)
	if err != nil {
		// The guard just loaded this account.
		if errors.Is(err, common.ErrorNotFound) {
			err = fmt.Errorf("%w: account %s vanished after authentication", common.ErrorInternal, id.AccountID)
		}
		s.writeServiceError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// updatableFields is the allow-list of self-service keys.
var updatableFields = map[string]bool{
	"firstName": true,
	"lastName":  true,
	"password":  true,
}

// decodeUpdate builds an UpdateUserInput from the JSON object keys, rejecting
// any key outside updatableFields and any non-string value.
func decodeUpdate(body io.Reader) (services.UpdateUserInput, error) {
	var in services.UpdateUserInput

	raw, err := io.ReadAll(body)
	if err != nil {
		return in, fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}

	var fields map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return in, fmt.Errorf("%w: body must be a JSON object", common.ErrorValidation)
	}
	if dec.More() {
		return in, fmt.Errorf("%w: trailing data", common.ErrorValidation)
	}

	for key, value := range fields {
		if !updatableFields[key] {
			return in, fmt.Errorf("%w: field %q cannot be updated", common.ErrorValidation, key)
		}
		var v string
		if err := json.Unmarshal(value, &v); err != nil {
			return in, fmt.Errorf("%w: field %q must be a string", common.ErrorValidation, key)
		}
		switch key {
		case "firstName":
			in.FirstName = &v
		case "lastName":
			in.LastName = &v
		case "password":
			in.Password = &v
		}
	}
	return in, nil
}

func (s *Server) handleUpdateSelf(w http.ResponseWriter, r *http.Request) {
	in, err := decodeUpdate(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}

	id, _ := IdentityFrom(r.Context())
	if err := s.users.Update(r.Context(), id.AccountID, in); err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if err := s.users.Verify(r.Context(), q.Get("token"), q.Get("email")); err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "email verified"})
}
