package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/BerryBytes/portalctl/internal/storage"
	"github.com/BerryBytes/portalctl/models"
)

var ErrIncompleteCredentials = errors.New("access token and expiry must be written together")

// Store is the persistence boundary of a session: credentials and cached
// identity records spread over a short-lived and a long-lived scope.
type Store struct {
	short storage.Scope
	long  storage.Scope
	keys  Keys
}

func NewStore(short, long storage.Scope, keys Keys) *Store {
	return &Store{short: short, long: long, keys: keys}
}

func (s *Store) Keys() Keys {
	return s.keys
}

// ReadCredentials returns the stored credentials. Missing or corrupt values
// leave the corresponding field empty; the result is never nil.
func (s *Store) ReadCredentials(ctx context.Context) (*models.CredentialSet, error) {
	creds := &models.CredentialSet{}

	token, ok, err := s.short.Get(ctx, s.keys.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to read access token: %w", err)
	}
	if ok {
		creds.AccessToken = token
	}

	rawExpiry, ok, err := s.short.Get(ctx, s.keys.AccessExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to read access expiry: %w", err)
	}
	if ok {
		if expiry, valid := decodeExpiry(rawExpiry); valid {
			creds.AccessExpiry = expiry
		}
	}

	if s.keys.RefreshToken != "" {
		refresh, ok, err := s.long.Get(ctx, s.keys.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("failed to read refresh token: %w", err)
		}
		if ok {
			creds.RefreshToken = refresh
		}
	}

	return creds, nil
}

// WriteCredentials stores the access token and its expiry in one write. The
// refresh token is only replaced when set has one, so a refresh response that
// does not rotate it keeps the current value. A rotated refresh token is
// written first: if the access write then fails, the old access token sits
// next to a refresh token that can still renew it.
func (s *Store) WriteCredentials(ctx context.Context, set *models.CredentialSet) error {
	if !set.HasAccess() {
		return ErrIncompleteCredentials
	}

	if s.keys.RefreshToken != "" && set.RefreshToken != "" {
		if err := s.long.Set(ctx, map[string]string{s.keys.RefreshToken: set.RefreshToken}); err != nil {
			return fmt.Errorf("failed to write refresh token: %w", err)
		}
	}

	if err := s.short.Set(ctx, map[string]string{
		s.keys.AccessToken:  set.AccessToken,
		s.keys.AccessExpiry: encodeExpiry(set.AccessExpiry),
	}); err != nil {
		return fmt.Errorf("failed to write access token: %w", err)
	}
	return nil
}

// ClearCredentials removes the access pair and the refresh token.
func (s *Store) ClearCredentials(ctx context.Context) error {
	if err := s.short.Delete(ctx, s.keys.AccessToken, s.keys.AccessExpiry); err != nil {
		return fmt.Errorf("failed to clear access token: %w", err)
	}
	if s.keys.RefreshToken != "" {
		if err := s.long.Delete(ctx, s.keys.RefreshToken); err != nil {
			return fmt.Errorf("failed to clear refresh token: %w", err)
		}
	}
	return nil
}

// ReadCachedProfile returns an Identity holding only the record of kind, or
// nil when it is absent or corrupt.
func (s *Store) ReadCachedProfile(ctx context.Context, kind models.ProfileKind) (*models.Identity, error) {
	raw, ok, err := s.long.Get(ctx, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", kind, err)
	}
	if !ok {
		return nil, nil
	}
	id := &models.Identity{}
	if !setRecord(id, kind, raw) {
		return nil, nil
	}
	return id, nil
}

// ReadIdentity loads every cached record owned by this variant.
func (s *Store) ReadIdentity(ctx context.Context) (*models.Identity, error) {
	id := &models.Identity{}
	for _, kind := range s.keys.Profiles {
		rec, err := s.ReadCachedProfile(ctx, kind)
		if err != nil {
			return nil, err
		}
		id = id.Merge(rec)
	}
	return id, nil
}

// WriteCachedProfile stores every non-nil record of id owned by this variant
// in a single write.
func (s *Store) WriteCachedProfile(ctx context.Context, id *models.Identity) error {
	records := recordValues(id, s.keys.Profiles)
	if len(records) == 0 {
		return nil
	}
	values := make(map[string]string, len(records))
	for kind, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", kind, err)
		}
		values[string(kind)] = string(data)
	}
	if err := s.long.Set(ctx, values); err != nil {
		return fmt.Errorf("failed to write cached profile: %w", err)
	}
	return nil
}

// ClearCachedProfile removes the given records, or all owned records when no
// kind is given.
func (s *Store) ClearCachedProfile(ctx context.Context, kinds ...models.ProfileKind) error {
	keys := s.keys.profileKeys()
	if len(kinds) > 0 {
		keys = make([]string, len(kinds))
		for i, k := range kinds {
			keys[i] = string(k)
		}
	}
	if err := s.long.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("failed to clear cached profile: %w", err)
	}
	return nil
}

// Clear removes all session data of this variant. The long-lived scope is
// cleared in one delete so the refresh token and the records go together.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.short.Delete(ctx, s.keys.AccessToken, s.keys.AccessExpiry); err != nil {
		return fmt.Errorf("failed to clear access token: %w", err)
	}
	long := s.keys.profileKeys()
	if s.keys.RefreshToken != "" {
		long = append(long, s.keys.RefreshToken)
	}
	if err := s.long.Delete(ctx, long...); err != nil {
		return fmt.Errorf("failed to clear session records: %w", err)
	}
	return nil
}

// HasStoredSession reports whether any credential is present.
func (s *Store) HasStoredSession(ctx context.Context) (bool, error) {
	creds, err := s.ReadCredentials(ctx)
	if err != nil {
		return false, err
	}
	return creds.AccessToken != "" || !creds.AccessExpiry.IsZero() || creds.RefreshToken != "", nil
}
