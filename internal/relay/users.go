package relay

import (
	"fmt"

	"github.com/mastermeng/fabricrest/internal/ledger"
	"github.com/pkg/errors"
)

// AuthResponse is returned by Register and Login. Register carries the
// token at the top level, Login inside Message.
type AuthResponse struct {
	Success bool        `json:"success"`
	Message interface{} `json:"message"`
	Token   string      `json:"token,omitempty"`
}

// TokenMessage is the Login success message.
type TokenMessage struct {
	Token string `json:"token"`
}

func validateUser(user ledger.User) error {
	return required(
		[2]string{"username", user.Username},
		[2]string{"orgName", user.OrgName},
	)
}

// Register enrolls a new user and issues a token for it.
func (s *Service) Register(user ledger.User) (*AuthResponse, error) {
	if err := validateUser(user); err != nil {
		return nil, err
	}

	err := s.observe("enroll", func() error { return s.net.Enroll(user) })
	if errors.Cause(err) == ledger.ErrAlreadyEnrolled {
		return &AuthResponse{
			Success: false,
			Message: fmt.Sprintf("User %s already exists in the wallet", user.Username),
		}, nil
	}
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{
		Success: true,
		Message: fmt.Sprintf("%s enrolled Successfully", user.Username),
		Token:   token,
	}, nil
}

// Login issues a token for a user the wallet already holds.
func (s *Service) Login(user ledger.User) (*AuthResponse, error) {
	if err := validateUser(user); err != nil {
		return nil, err
	}

	ok, err := s.net.Exists(user)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &AuthResponse{
			Success: false,
			Message: fmt.Sprintf("User with username %s is not registered with %s, Please register first.", user.Username, user.OrgName),
		}, nil
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Success: true, Message: TokenMessage{Token: token}}, nil
}
