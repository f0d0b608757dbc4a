package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/schemas"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", New(CodeUserNotFound, "User 'Ghost' not found"))

	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NotErrorIs(t, err, ErrShowNotFound)
	assert.Equal(t, CodeUserNotFound, CodeOf(err))
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestKinds(t *testing.T) {
	tests := []struct {
		code Code
		kind Kind
	}{
		{CodeUserNotFound, KindNotFound},
		{CodeShowNotFound, KindNotFound},
		{CodeNonUniqueUser, KindConflict},
		{CodeNonUniqueShow, KindConflict},
		{CodeAlreadyFriends, KindConflict},
		{CodeInvalidPayload, KindInvalidInput},
		{CodeInvalidMALStatus, KindInvalidInput},
		{CodeUserPasswordNotSet, KindPreconditionUnmet},
		{CodeShowNotInBacklog, KindPreconditionUnmet},
		{CodeUnknown, KindUnknown},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.code.Kind())
		})
	}
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("connection reset")))
	assert.Nil(t, DetailsOf(errors.New("x")))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("driver down")
	err := Wrap(CodeInvalidPayload, "Show data was invalid", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestErrorMessageIncludesDetails(t *testing.T) {
	err := WithDetails(CodeInvalidPayload, "invalid user", []string{"name: required"})
	assert.Equal(t, "invalid user: name: required", err.Error())
}

type row struct{ id string }

func TestExactlyOne(t *testing.T) {
	idOf := func(r row) string { return r.id }

	t.Run("none", func(t *testing.T) {
		_, err := ExactlyOne([]row{}, "Ghost", CodeUserNotFound, CodeNonUniqueUser, idOf)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUserNotFound)
		assert.Equal(t, "User 'Ghost' not found", err.Error())
	})

	t.Run("one", func(t *testing.T) {
		got, err := ExactlyOne([]row{{id: "users/1"}}, "Chrolo", CodeUserNotFound, CodeNonUniqueUser, idOf)
		require.NoError(t, err)
		assert.Equal(t, "users/1", got.id)
	})

	t.Run("many lists every id", func(t *testing.T) {
		_, err := ExactlyOne([]row{{id: "users/1"}, {id: "users/2"}}, "Chrolo", CodeUserNotFound, CodeNonUniqueUser, idOf)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNonUniqueUser)
		assert.Equal(t, KindConflict, KindOf(err))
		assert.Equal(t, []string{"users/1", "users/2"}, DetailsOf(err))
		assert.Contains(t, err.Error(), "Multiple users found for name 'Chrolo'")
	})

	t.Run("five lists all five ids", func(t *testing.T) {
		rows := make([]row, 5)
		want := make([]string, 5)
		for i := range rows {
			rows[i].id = fmt.Sprintf("shows/%d", i+1)
			want[i] = rows[i].id
		}
		_, err := ExactlyOne(rows, "Nichijou", CodeShowNotFound, CodeNonUniqueShow, idOf)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNonUniqueShow)
		assert.Equal(t, KindConflict, KindOf(err))
		assert.Equal(t, want, DetailsOf(err))
		for _, id := range want {
			assert.Contains(t, err.Error(), id)
		}
	})

	t.Run("show codes", func(t *testing.T) {
		_, err := ExactlyOne([]row{}, "Nichijou", CodeShowNotFound, CodeNonUniqueShow, idOf)
		assert.ErrorIs(t, err, ErrShowNotFound)
		assert.Equal(t, "Show 'Nichijou' not found", err.Error())
	})
}

func TestInvalidPayload(t *testing.T) {
	ve := &schemas.ValidationError{SchemaID: schemas.PrefixSchemaID("anime/index.schema.json"), Errors: []string{"missing name"}}

	err := InvalidPayload("Show data was invalid", fmt.Errorf("validate: %w", ve))
	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.Equal(t, []string{"missing name"}, DetailsOf(err))
	assert.Equal(t, "Show data was invalid: missing name", err.Error())

	other := errors.New("unknown schema")
	assert.Same(t, other, InvalidPayload("Show data was invalid", other))
}
