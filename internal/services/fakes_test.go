package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/yukikurage/file-hosting-api/internal/identity"
	"github.com/yukikurage/file-hosting-api/internal/models"
	"github.com/yukikurage/file-hosting-api/internal/repository"
)

// fakeProvider is an in-memory identity.Provider. Tokens are "token-<id>".
type fakeProvider struct {
	mu        sync.Mutex
	next      int
	subjects  map[string]fakeSubject
	signUps   int
	deleted   []string
	signUpErr error
	deleteErr error
}

type fakeSubject struct {
	id       string
	email    string
	password string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{subjects: map[string]fakeSubject{}}
}

func (p *fakeProvider) SignUp(ctx context.Context, email, password string) (*identity.Subject, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signUps++
	if p.signUpErr != nil {
		return nil, p.signUpErr
	}
	for _, s := range p.subjects {
		if s.email == email {
			return nil, identity.ErrAlreadyRegistered
		}
	}
	p.next++
	id := fmt.Sprintf("sub-%d", p.next)
	p.subjects[id] = fakeSubject{id: id, email: email, password: password}
	return &identity.Subject{ID: id, Email: email}, nil
}

func (p *fakeProvider) SignIn(ctx context.Context, email, password string) (*identity.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.subjects {
		if s.email == email && s.password == password {
			return &identity.Session{
				AccessToken:  "token-" + s.id,
				RefreshToken: "refresh-" + s.id,
				ExpiresIn:    3600,
				Subject:      identity.Subject{ID: s.id, Email: s.email},
			}, nil
		}
	}
	return nil, identity.ErrInvalidCredentials
}

func (p *fakeProvider) Refresh(ctx context.Context, refreshToken string) (*identity.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.subjects {
		if refreshToken == "refresh-"+s.id {
			return &identity.Session{AccessToken: "token-" + s.id, RefreshToken: refreshToken, Subject: identity.Subject{ID: s.id}}, nil
		}
	}
	return nil, identity.ErrInvalidToken
}

func (p *fakeProvider) SignOut(ctx context.Context, accessToken string) error {
	return nil
}

func (p *fakeProvider) Resolve(ctx context.Context, accessToken string) (*identity.Subject, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.subjects {
		if accessToken == "token-"+s.id {
			return &identity.Subject{ID: s.id, Email: s.email}, nil
		}
	}
	return nil, identity.ErrInvalidToken
}

func (p *fakeProvider) DeleteSubject(ctx context.Context, subjectID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, subjectID)
	if p.deleteErr != nil {
		return p.deleteErr
	}
	if _, ok := p.subjects[subjectID]; !ok {
		return identity.ErrSubjectNotFound
	}
	delete(p.subjects, subjectID)
	return nil
}

// failingProfiles fails Create and delegates everything else.
type failingProfiles struct {
	repository.ProfileRepository
}

func (failingProfiles) Create(ctx context.Context, profile *models.Profile) error {
	return errors.New("duplicate key value violates unique constraint")
}
