package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"agenda/internal/models"
	"agenda/internal/service"
)

type credentialsRequest struct {
	Name        string `json:"name"`
	CPF         string `json:"cpf"`
	YearOfBirth int    `json:"yearOfBirth"`
}

func (s *HTTPServer) handleSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.svc.Auth.Session(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// adminAuth runs fn with the decoded credentials and answers 200 or 401.
func (s *HTTPServer) adminAuth(w http.ResponseWriter, r *http.Request, fn func(req credentialsRequest) (bool, error)) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.serviceError(w, err)
		return
	}
	ok, err := fn(req)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusUnauthorized, service.ErrInvalidCredentials.Error())
		return
	}
	s.handleSession(w, r)
}

func (s *HTTPServer) handleRegisterAdmin(w http.ResponseWriter, r *http.Request) {
	s.adminAuth(w, r, func(req credentialsRequest) (bool, error) {
		return s.svc.Auth.RegisterAdmin(r.Context(), req.CPF, req.YearOfBirth)
	})
}

func (s *HTTPServer) handleLoginAdmin(w http.ResponseWriter, r *http.Request) {
	s.adminAuth(w, r, func(req credentialsRequest) (bool, error) {
		return s.svc.Auth.LoginAdmin(r.Context(), req.CPF, req.YearOfBirth)
	})
}

func (s *HTTPServer) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	s.adminAuth(w, r, func(req credentialsRequest) (bool, error) {
		return s.svc.Auth.RegisterUser(r.Context(), req.Name, req.CPF, req.YearOfBirth)
	})
}

func (s *HTTPServer) handleLogoutAdmin(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Auth.LogoutAdmin(r.Context()); err != nil {
		s.serviceError(w, err)
		return
	}
	s.handleSession(w, r)
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.serviceError(w, err)
		return
	}
	result, err := s.svc.Auth.Login(r.Context(), req.CPF, req.YearOfBirth)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	switch result {
	case service.LoginSuccess:
		writeJSON(w, http.StatusOK, map[string]string{"result": string(result)})
	case service.LoginBlocked:
		writeJSON(w, http.StatusForbidden, map[string]string{"result": string(result), "error": service.ErrUserBlocked.Error()})
	default:
		writeJSON(w, http.StatusUnauthorized, map[string]string{"result": string(result), "error": service.ErrInvalidCredentials.Error()})
	}
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Auth.Logout(r.Context()); err != nil {
		s.serviceError(w, err)
		return
	}
	s.handleSession(w, r)
}

func (s *HTTPServer) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.Auth.ListUsers(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *HTTPServer) handleAddUser(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.serviceError(w, err)
		return
	}
	user, err := s.svc.Auth.AddUser(r.Context(), req.Name, req.CPF, req.YearOfBirth)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *HTTPServer) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Auth.DeleteUser(r.Context(), r.PathValue("cpf")); err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleBlockUser(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Auth.BlockUser(r.Context(), r.PathValue("cpf")); err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleUnblockUser(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Auth.UnblockUser(r.Context(), r.PathValue("cpf")); err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// subscriptionRequest carries dates as YYYY-MM-DD. An empty startDate
// removes the subscription; an empty endDate means the default length.
type subscriptionRequest struct {
	StartDate     string               `json:"startDate"`
	EndDate       string               `json:"endDate"`
	MonthlyValue  money                `json:"monthlyValue"`
	PaymentStatus models.PaymentStatus `json:"paymentStatus"`
}

func (req subscriptionRequest) subscription() (*models.Subscription, error) {
	if strings.TrimSpace(req.StartDate) == "" {
		return nil, nil
	}
	start, err := time.Parse(models.DateLayout, req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid startDate", service.ErrInvalidInput)
	}
	sub := service.NewSubscription(start, float64(req.MonthlyValue))
	if req.EndDate != "" {
		end, err := time.Parse(models.DateLayout, req.EndDate)
		if err != nil || end.Before(start) {
			return nil, fmt.Errorf("%w: invalid endDate", service.ErrInvalidInput)
		}
		sub.EndDate = end
	}
	if req.PaymentStatus != "" {
		if !req.PaymentStatus.Valid() {
			return nil, fmt.Errorf("%w: invalid paymentStatus", service.ErrInvalidInput)
		}
		sub.PaymentStatus = req.PaymentStatus
	}
	return sub, nil
}

func (s *HTTPServer) handleSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.serviceError(w, err)
		return
	}
	sub, err := req.subscription()
	if err != nil {
		s.serviceError(w, err)
		return
	}
	result, err := s.svc.Auth.UpdateSubscription(r.Context(), r.PathValue("cpf"), sub)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeSubscriptionCheck(w, result)
}

func (s *HTTPServer) handleCheckSubscription(w http.ResponseWriter, r *http.Request) {
	result, err := s.svc.Auth.CheckSubscription(r.Context(), r.PathValue("cpf"))
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeSubscriptionCheck(w, result)
}

func (s *HTTPServer) writeSubscriptionCheck(w http.ResponseWriter, result service.SubscriptionCheck) {
	code := http.StatusOK
	if result == service.SubscriptionNotFound {
		code = http.StatusNotFound
	}
	writeJSON(w, code, map[string]string{"result": string(result)})
}

func (s *HTTPServer) handleExpire(w http.ResponseWriter, r *http.Request) {
	count, err := s.svc.Auth.ExpireSubscriptions(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"blocked": count})
}
