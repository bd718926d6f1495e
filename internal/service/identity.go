package service

import (
	"net/http"

	"github.com/folio-dev/folio/internal/domain"
	internal_errors "github.com/folio-dev/folio/internal/errors"
	"github.com/folio-dev/folio/internal/logger"
	"github.com/google/uuid"
)

// IdentityStorage is the slice of the user directory the identity resolver
// needs.
type IdentityStorage interface {
	SaveUser(user domain.User) error
	UserByEmail(email domain.Email) (domain.User, error)
	UserByUuid(uuid domain.Uuid) (domain.User, error)
	UserByToken(token string) (domain.User, error)
	BackfillEmail(uuid domain.Uuid, email domain.Email, name string) error
	TouchLastSeen(uuid domain.Uuid) error
}

// Directory owns visitor identity: anonymous uuids, email-backed users and
// their access levels.
type Directory struct {
	storage IdentityStorage
}

func NewDirectory(storage IdentityStorage) *Directory {
	return &Directory{storage: storage}
}

// Resolve looks up a user by opaque identity token (uuid or email).
func (d *Directory) Resolve(token string) (domain.User, bool) {
	if token == "" {
		return domain.User{}, false
	}
	user, err := d.storage.UserByToken(token)
	if err != nil {
		if !internal_errors.IsNotFound(err) {
			logger.Log.Error("identity lookup failed", "error", err)
		}
		return domain.User{}, false
	}
	return user, true
}

// ResolveOrCreate finds the user owning email (preferred) or existingUuid,
// creating a fresh level-0 record when neither matches. An email supplied
// for a previously anonymous identity is backfilled. Insert races on the
// unique email constraint are resolved by adopting the winning row.
func (d *Directory) ResolveOrCreate(email domain.Email, name string, existingUuid domain.Uuid) (domain.Uuid, error) {
	var user domain.User
	found := false

	if email != "" {
		u, err := d.storage.UserByEmail(email)
		switch {
		case err == nil:
			user, found = u, true
		case !internal_errors.IsNotFound(err):
			return "", err
		}
	}
	if !found && existingUuid != "" {
		u, err := d.storage.UserByUuid(existingUuid)
		switch {
		case err == nil:
			user, found = u, true
		case !internal_errors.IsNotFound(err):
			return "", err
		}
	}

	if found {
		if email != "" && user.Email == "" {
			if err := d.storage.BackfillEmail(user.Uuid, email, name); err != nil {
				return "", err
			}
		} else if err := d.storage.TouchLastSeen(user.Uuid); err != nil {
			return "", err
		}
		return user.Uuid, nil
	}

	newUuid := existingUuid
	if newUuid == "" {
		newUuid = uuid.NewString()
	}
	if name == "" {
		name = "Anonymous"
	}

	err := d.storage.SaveUser(domain.User{
		Uuid:        newUuid,
		Email:       email,
		Name:        name,
		AccessLevel: domain.LevelPublic,
	})
	if err != nil {
		// Lost the insert race: someone registered this email between our
		// lookup and insert. Adopt their row instead of duplicating.
		if e, ok := err.(*internal_errors.ErrorWithStatusCode); ok && e.StatusCode == http.StatusConflict && email != "" {
			winner, lookupErr := d.storage.UserByEmail(email)
			if lookupErr != nil {
				return "", lookupErr
			}
			return winner.Uuid, nil
		}
		return "", err
	}
	return newUuid, nil
}
