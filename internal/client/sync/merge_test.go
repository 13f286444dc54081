package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyhq/tally/internal/client/models"
)

func contact(name, email string, id int64, remoteID string, updatedAt int64) *models.Contact {
	c := &models.Contact{Name: name, Email: email, CategoryID: "contacts|misc"}
	c.ID = id
	c.RemoteID = remoteID
	c.UpdatedAt = updatedAt
	return c
}

func contactKey(c *models.Contact) string { return c.Key() }

func TestMergeLocalWinsInheritsRemoteID(t *testing.T) {
	local := []*models.Contact{contact("Amina", "a@example.com", 1, "", 200)}
	remote := []*models.Contact{contact("Amina", "a@example.com", 0, "doc-1", 100)}

	res := Merge(local, remote, contactKey)

	require.Len(t, res.Merged, 1)
	assert.Equal(t, 1, res.LocalWins)
	assert.Equal(t, 0, res.RemoteWins)
	assert.Equal(t, "doc-1", res.Merged[0].RemoteID)
	assert.Equal(t, int64(200), res.Merged[0].UpdatedAt)
}

func TestMergeRemoteWinsKeepsLocalBackRef(t *testing.T) {
	local := []*models.Contact{contact("Amina", "a@example.com", 7, "", 100)}
	remote := []*models.Contact{contact("Amina", "a@example.com", 0, "doc-1", 300)}

	res := Merge(local, remote, contactKey)

	require.Len(t, res.Merged, 1)
	assert.Equal(t, 1, res.RemoteWins)
	assert.Equal(t, "doc-1", res.Merged[0].RemoteID)
	assert.Equal(t, int64(7), res.Merged[0].LocalID)
	assert.Equal(t, int64(300), res.Merged[0].UpdatedAt)
}

func TestMergeTieKeepsResidentAndSetsAsideDuplicate(t *testing.T) {
	localCopy := contact("Amina", "a@example.com", 7, "", 100)
	remoteCopy := contact("Amina", "a@example.com", 0, "doc-1", 100)

	res := Merge([]*models.Contact{localCopy}, []*models.Contact{remoteCopy}, contactKey)

	require.Len(t, res.Merged, 1)
	assert.Same(t, remoteCopy, res.Merged[0])
	require.Len(t, res.Duplicates, 1)
	assert.Same(t, localCopy, res.Duplicates[0])
}

func TestMergeDisjointSets(t *testing.T) {
	local := []*models.Contact{contact("Amina", "a@example.com", 1, "", 100)}
	remote := []*models.Contact{contact("Bakari", "b@example.com", 0, "doc-2", 100)}

	res := Merge(local, remote, contactKey)

	require.Len(t, res.Merged, 2)
	assert.Equal(t, 1, res.LocalOnly)
	assert.Equal(t, 1, res.RemoteOnly)
	// Remote order first, then local-only additions.
	assert.Equal(t, "Bakari", res.Merged[0].Name)
	assert.Equal(t, "Amina", res.Merged[1].Name)
}

func TestMergeIsDeterministic(t *testing.T) {
	mk := func() ([]*models.Contact, []*models.Contact) {
		local := []*models.Contact{
			contact("Amina", "a@example.com", 1, "", 300),
			contact("Chep", "c@example.com", 2, "", 50),
			contact("Dada", "d@example.com", 3, "", 120),
		}
		remote := []*models.Contact{
			contact("Amina", "a@example.com", 0, "doc-1", 100),
			contact("Chep", "c@example.com", 0, "doc-2", 90),
			contact("Eko", "e@example.com", 0, "doc-3", 10),
		}
		return local, remote
	}

	l1, r1 := mk()
	first := Merge(l1, r1, contactKey)
	l2, r2 := mk()
	second := Merge(l2, r2, contactKey)

	require.Equal(t, len(first.Merged), len(second.Merged))
	for i := range first.Merged {
		assert.Equal(t, first.Merged[i].Key(), second.Merged[i].Key())
		assert.Equal(t, first.Merged[i].UpdatedAt, second.Merged[i].UpdatedAt)
	}
	assert.Equal(t, first.LocalWins, second.LocalWins)
	assert.Equal(t, first.RemoteWins, second.RemoteWins)
}

func TestSplitDuplicatesKeepsLatest(t *testing.T) {
	older := contact("Amina", "a@example.com", 1, "", 100)
	newer := contact("Amina", "a@example.com", 2, "", 200)
	other := contact("Bakari", "b@example.com", 3, "", 50)

	unique, dups := SplitDuplicates([]*models.Contact{older, newer, other}, contactKey)

	require.Len(t, unique, 2)
	require.Len(t, dups, 1)
	assert.Same(t, older, dups[0])

	keys := []string{unique[0].Key(), unique[1].Key()}
	assert.Contains(t, keys, newer.Key())
	assert.Contains(t, keys, other.Key())
}

func TestSplitDuplicatesNoCollisions(t *testing.T) {
	items := []*models.Contact{
		contact("Amina", "a@example.com", 1, "", 100),
		contact("Bakari", "b@example.com", 2, "", 100),
	}
	unique, dups := SplitDuplicates(items, contactKey)
	assert.Len(t, unique, 2)
	assert.Empty(t, dups)
}
