package visibility

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galleryve/galleryve-backend/pkg/enums"
	pkgerrors "github.com/galleryve/galleryve-backend/pkg/errors"
)

type stubGrantChecker struct {
	granted bool
	err     error
	calls   int
}

func (s *stubGrantChecker) CheckAccess(_ context.Context, _ enums.SubjectType, _, _ uuid.UUID) (bool, error) {
	s.calls++
	return s.granted, s.err
}

func record(owner uuid.UUID, team *uuid.UUID) Record {
	return Record{
		Type:        enums.SubjectTypeCustomer,
		ID:          uuid.New(),
		CreatedByID: owner,
		TeamID:      team,
	}
}

func teamID() *uuid.UUID {
	id := uuid.New()
	return &id
}

func TestResolveAdminAndMasterSeeEverything(t *testing.T) {
	owner := uuid.New()
	team := teamID()

	for _, role := range []enums.Role{enums.RoleAdmin, enums.RoleMaster} {
		res, err := Resolve(context.Background(), record(owner, team), Caller{ID: uuid.New(), Role: role}, nil)
		require.NoError(t, err)
		assert.Equal(t, enums.MaskingLevelNone, res.Level)
		assert.False(t, res.EffectiveOwner)
	}
}

func TestResolveOwnerIsUnmasked(t *testing.T) {
	owner := uuid.New()
	res, err := Resolve(context.Background(), record(owner, teamID()), Caller{ID: owner, Role: enums.RoleStaff}, nil)
	require.NoError(t, err)
	assert.Equal(t, enums.MaskingLevelNone, res.Level)
	assert.True(t, res.EffectiveOwner)
}

func TestResolveActiveGrantActsAsOwnership(t *testing.T) {
	grants := &stubGrantChecker{granted: true}
	caller := Caller{ID: uuid.New(), Role: enums.RoleStaff, TeamID: teamID()}

	res, err := Resolve(context.Background(), record(uuid.New(), teamID()), caller, grants)
	require.NoError(t, err)
	assert.Equal(t, enums.MaskingLevelNone, res.Level)
	assert.True(t, res.EffectiveOwner)
	assert.Equal(t, 1, grants.calls)
}

func TestResolveSameTeam(t *testing.T) {
	team := teamID()
	grants := &stubGrantChecker{}

	staff, err := Resolve(context.Background(), record(uuid.New(), team), Caller{ID: uuid.New(), Role: enums.RoleStaff, TeamID: team}, grants)
	require.NoError(t, err)
	assert.Equal(t, enums.MaskingLevelPartial, staff.Level)
	assert.False(t, staff.EffectiveOwner)

	manager, err := Resolve(context.Background(), record(uuid.New(), team), Caller{ID: uuid.New(), Role: enums.RoleManager, TeamID: team}, grants)
	require.NoError(t, err)
	assert.Equal(t, enums.MaskingLevelNone, manager.Level)
}

func TestResolveStrangerIsDeniedNotMasked(t *testing.T) {
	grants := &stubGrantChecker{}

	for _, role := range []enums.Role{enums.RoleStaff, enums.RoleManager} {
		_, err := Resolve(context.Background(), record(uuid.New(), teamID()), Caller{ID: uuid.New(), Role: role, TeamID: teamID()}, grants)
		require.Error(t, err)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
	}
}

func TestResolveExpiredGrantFallsThroughToDenial(t *testing.T) {
	// checker returns false once the grant's expires_at has passed
	grants := &stubGrantChecker{granted: false}
	_, err := Resolve(context.Background(), record(uuid.New(), teamID()), Caller{ID: uuid.New(), Role: enums.RoleStaff, TeamID: teamID()}, grants)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestResolveArtistWithoutTeamIsTeamVisible(t *testing.T) {
	rec := Record{Type: enums.SubjectTypeArtist, ID: uuid.New(), CreatedByID: uuid.New()}

	res, err := Resolve(context.Background(), rec, Caller{ID: uuid.New(), Role: enums.RoleStaff, TeamID: teamID()}, nil)
	require.NoError(t, err)
	assert.Equal(t, enums.MaskingLevelPartial, res.Level)
}

func TestResolveGrantCheckerErrorSurfaces(t *testing.T) {
	grants := &stubGrantChecker{err: assert.AnError}
	_, err := Resolve(context.Background(), record(uuid.New(), teamID()), Caller{ID: uuid.New(), Role: enums.RoleStaff, TeamID: teamID()}, grants)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
}
