package shows

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	backlogdb "github.com/saulfrancisco-ruizacevedo/go-backlogdb"
	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/apperror"
	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/graphtest"
	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/logging"
	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/models"
	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/schemas"
)

func newService(t *testing.T) (*Service, *graphtest.Graph, *bytes.Buffer) {
	t.Helper()
	reg, err := schemas.NewEmbedded()
	require.NoError(t, err)
	g := graphtest.New()
	logs := &bytes.Buffer{}
	return New(g, reg, WithLogger(logging.NewTestLogger(logs))), g, logs
}

func TestAddShowToDatabase(t *testing.T) {
	svc, g, _ := newService(t)
	ctx := context.Background()

	show := models.Show{
		Name:       "Nichijou",
		MalAnimeID: 10165,
		MalURL:     models.StringPtr("https://myanimelist.net/anime/10165/Nichijou"),
		AltNames:   []string{"My Ordinary Life"},
	}
	stored, err := svc.AddShowToDatabase(ctx, show)
	require.NoError(t, err)
	assert.Equal(t, show, stored)

	vertices := g.Vertices(backlogdb.Shows)
	require.Len(t, vertices, 1)
	assert.Contains(t, vertices[0], backlogdb.IDField)

	exists, err := svc.CheckIfShowExistsByName(ctx, "Nichijou")
	require.NoError(t, err)
	assert.True(t, exists)

	id, found, err := svc.ShowIDByName(ctx, "Nichijou")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, vertices[0].RecordID(), id)
}

func TestAddShowToDatabase_Invalid(t *testing.T) {
	tests := []struct {
		name string
		show models.Show
	}{
		{name: "missing name", show: models.Show{MalAnimeID: 10165}},
		{name: "empty alt name", show: models.Show{Name: "Nichijou", AltNames: []string{""}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, g, logs := newService(t)

			_, err := svc.AddShowToDatabase(context.Background(), tt.show)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperror.ErrInvalidPayload)
			assert.Contains(t, err.Error(), "Show data was invalid")
			assert.Contains(t, logs.String(), "Data format error in show data")
			assert.Empty(t, g.Calls())
		})
	}
}

func TestAddShowToDatabase_Duplicate(t *testing.T) {
	svc, g, _ := newService(t)
	g.AddVertex(backlogdb.Shows, backlogdb.Document{"name": "Punch Line", "malAnimeId": 28617})

	_, err := svc.AddShowToDatabase(context.Background(), models.Show{Name: "Punch Line"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrNonUniqueShow)
	assert.Equal(t, "Show 'Punch Line' already exists on database", err.Error())
	assert.NotContains(t, g.Calls(), "InsertVertex:shows")
}

func TestAddShowToDatabase_ConstraintViolation(t *testing.T) {
	svc, g, _ := newService(t)
	g.FailOn("InsertVertex:shows", fmt.Errorf("insert into shows: %w", backlogdb.ErrConstraintViolation))

	_, err := svc.AddShowToDatabase(context.Background(), models.Show{Name: "Punch Line"})
	assert.ErrorIs(t, err, apperror.ErrNonUniqueShow)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
}

func TestCheckIfShowExistsByName_Absent(t *testing.T) {
	svc, _, _ := newService(t)

	exists, err := svc.CheckIfShowExistsByName(context.Background(), "Nichijou")
	require.NoError(t, err)
	assert.False(t, exists)

	id, found, err := svc.ShowIDByName(context.Background(), "Nichijou")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, id)
}

func TestFindShowsByMALID(t *testing.T) {
	svc, g, _ := newService(t)
	g.AddVertex(backlogdb.Shows, backlogdb.Document{"name": "Nichijou", "malAnimeId": int64(10165)})
	g.AddVertex(backlogdb.Shows, backlogdb.Document{"name": "Punch Line", "malAnimeId": int64(28617)})

	found, err := svc.FindShowsByMALID(context.Background(), 28617)
	require.NoError(t, err)
	assert.Equal(t, []models.Show{{Name: "Punch Line", MalAnimeID: 28617}}, found)

	none, err := svc.FindShowsByMALID(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStoreErrorsPropagate(t *testing.T) {
	svc, g, _ := newService(t)
	g.FailOn("ExistsByField", graphtest.ErrInjected)
	g.FailOn("FindVertices", graphtest.ErrInjected)

	_, err := svc.AddShowToDatabase(context.Background(), models.Show{Name: "Nichijou"})
	assert.ErrorIs(t, err, graphtest.ErrInjected)
	_, err = svc.FindShowsByMALID(context.Background(), 10165)
	assert.ErrorIs(t, err, graphtest.ErrInjected)
}
