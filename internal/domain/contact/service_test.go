package contact

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	contacts map[uuid.UUID]*Contact
}

func newMockRepo() *mockRepo {
	return &mockRepo{contacts: map[uuid.UUID]*Contact{}}
}

func visibleTo(clinicID uuid.UUID, visible []uuid.UUID) bool {
	for _, id := range visible {
		if id == clinicID {
			return true
		}
	}
	return false
}

func (m *mockRepo) Create(_ context.Context, c *Contact) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	clone := *c
	m.contacts[c.ID] = &clone
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID, visible []uuid.UUID) (*Contact, error) {
	c, ok := m.contacts[id]
	if !ok || !visibleTo(c.ClinicID, visible) {
		return nil, ErrNotFound
	}
	clone := *c
	return &clone, nil
}

func (m *mockRepo) Update(_ context.Context, c *Contact) error {
	if _, ok := m.contacts[c.ID]; !ok {
		return ErrNotFound
	}
	clone := *c
	m.contacts[c.ID] = &clone
	return nil
}

func (m *mockRepo) SoftDelete(_ context.Context, id uuid.UUID, visible []uuid.UUID) error {
	c, ok := m.contacts[id]
	if !ok || !visibleTo(c.ClinicID, visible) {
		return ErrNotFound
	}
	delete(m.contacts, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, visible []uuid.UUID, filter ListFilter) ([]*Contact, int, error) {
	var items []*Contact
	for _, c := range m.contacts {
		if !visibleTo(c.ClinicID, visible) {
			continue
		}
		if filter.Type != "" && c.ContactType != filter.Type {
			continue
		}
		if filter.ActiveOnly && !c.IsActive {
			continue
		}
		if filter.PreferredOnly && !c.IsPreferred {
			continue
		}
		items = append(items, c)
	}
	return items, len(items), nil
}

func (m *mockRepo) Stats(_ context.Context, visible []uuid.UUID) (*Stats, error) {
	stats := &Stats{ByType: map[string]int{}}
	for _, c := range m.contacts {
		if !visibleTo(c.ClinicID, visible) {
			continue
		}
		stats.Total++
		if c.IsActive {
			stats.Active++
		} else {
			stats.Inactive++
		}
		stats.ByType[c.ContactType]++
	}
	return stats, nil
}

type mockSequencer struct {
	counts map[string]int
}

func (m *mockSequencer) ContactNumber(_ context.Context, clinicID string) (string, error) {
	if m.counts == nil {
		m.counts = map[string]int{}
	}
	m.counts[clinicID]++
	return fmt.Sprintf("CNT-%04d", m.counts[clinicID]), nil
}

func validContact(clinicID uuid.UUID) *Contact {
	return &Contact{
		ClinicID:    clinicID,
		ContactType: TypeDoctor,
		FirstName:   "Maria",
		LastName:    "Santos",
		Specialty:   "Orthopedics",
		Phone:       "+63-917-555-0101",
		Address:     "12 Rizal Ave",
		City:        "Quezon City",
		Province:    "Metro Manila",
	}
}

func TestCreateContactAssignsNumber(t *testing.T) {
	svc := NewService(newMockRepo(), &mockSequencer{})
	clinicID := uuid.New()
	ctx := context.Background()

	first := validContact(clinicID)
	require.NoError(t, svc.Create(ctx, first))
	assert.Equal(t, "CNT-0001", first.ContactNumber)
	assert.True(t, first.IsActive)

	second := validContact(clinicID)
	require.NoError(t, svc.Create(ctx, second))
	assert.Equal(t, "CNT-0002", second.ContactNumber)
}

func TestContactNumbersArePerClinic(t *testing.T) {
	svc := NewService(newMockRepo(), &mockSequencer{})
	ctx := context.Background()

	first := validContact(uuid.New())
	require.NoError(t, svc.Create(ctx, first))
	other := validContact(uuid.New())
	require.NoError(t, svc.Create(ctx, other))

	// Each clinic starts its own sequence.
	assert.Equal(t, "CNT-0001", first.ContactNumber)
	assert.Equal(t, "CNT-0001", other.ContactNumber)
}

func TestCreateContactValidation(t *testing.T) {
	svc := NewService(newMockRepo(), &mockSequencer{})
	clinicID := uuid.New()
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*Contact)
		want   error
	}{
		{"missing first name", func(c *Contact) { c.FirstName = "" }, ErrNameRequired},
		{"missing last name", func(c *Contact) { c.LastName = "" }, ErrNameRequired},
		{"missing phone", func(c *Contact) { c.Phone = "" }, ErrPhoneRequired},
		{"unknown type", func(c *Contact) { c.ContactType = "VENDOR" }, ErrInvalidType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := validContact(clinicID)
			tc.mutate(c)
			assert.ErrorIs(t, svc.Create(ctx, c), tc.want)
		})
	}
}

func TestContactTypeDefaultsToOther(t *testing.T) {
	svc := NewService(newMockRepo(), &mockSequencer{})
	ctx := context.Background()

	c := validContact(uuid.New())
	c.ContactType = ""
	require.NoError(t, svc.Create(ctx, c))
	assert.Equal(t, TypeOther, c.ContactType)
}

func TestToggles(t *testing.T) {
	svc := NewService(newMockRepo(), &mockSequencer{})
	clinicID := uuid.New()
	visible := []uuid.UUID{clinicID}
	ctx := context.Background()

	c := validContact(clinicID)
	require.NoError(t, svc.Create(ctx, c))

	toggled, err := svc.TogglePreferred(ctx, c.ID, visible)
	require.NoError(t, err)
	assert.True(t, toggled.IsPreferred)

	toggled, err = svc.TogglePreferred(ctx, c.ID, visible)
	require.NoError(t, err)
	assert.False(t, toggled.IsPreferred)

	toggled, err = svc.ToggleActive(ctx, c.ID, visible)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)
}

func TestContactStats(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockSequencer{})
	clinicID := uuid.New()
	visible := []uuid.UUID{clinicID}
	ctx := context.Background()

	doctor := validContact(clinicID)
	require.NoError(t, svc.Create(ctx, doctor))

	lab := validContact(clinicID)
	lab.ContactType = TypeLaboratory
	require.NoError(t, svc.Create(ctx, lab))
	_, err := svc.ToggleActive(ctx, lab.ID, visible)
	require.NoError(t, err)

	// A contact in another clinic must not count.
	require.NoError(t, svc.Create(ctx, validContact(uuid.New())))

	stats, err := svc.Stats(ctx, visible)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Active)
	assert.Equal(t, 1, stats.Inactive)
	assert.Equal(t, 1, stats.ByType[TypeDoctor])
	assert.Equal(t, 1, stats.ByType[TypeLaboratory])
}

func TestContactVisibility(t *testing.T) {
	svc := NewService(newMockRepo(), &mockSequencer{})
	clinicID := uuid.New()
	ctx := context.Background()

	c := validContact(clinicID)
	require.NoError(t, svc.Create(ctx, c))

	_, err := svc.Get(ctx, c.ID, []uuid.UUID{uuid.New()})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFullName(t *testing.T) {
	c := &Contact{FirstName: "Jose", LastName: "Rizal"}
	assert.Equal(t, "Jose Rizal", c.FullName())
	c.MiddleName = "Protacio"
	assert.Equal(t, "Jose Protacio Rizal", c.FullName())
}
