package composables

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestUseActor(t *testing.T) {
	_, err := UseActor(context.Background())
	require.ErrorIs(t, err, ErrNoActor)

	_, err = UseActor(WithActor(context.Background(), ""))
	require.ErrorIs(t, err, ErrNoActor)

	id, err := UseActor(WithActor(context.Background(), "abc"))
	require.NoError(t, err)
	require.Equal(t, "abc", id)
}

func TestUseLogger_FallsBackToStandard(t *testing.T) {
	require.Equal(t, logrus.StandardLogger(), UseLogger(context.Background()).Logger)

	entry := logrus.NewEntry(logrus.New()).WithField("request-id", "r1")
	got := UseLogger(WithLogger(context.Background(), entry))
	require.Equal(t, "r1", got.Data["request-id"])
}
