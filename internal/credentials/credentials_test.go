package credentials_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"filippo.io/age"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/courierbridge/internal/credentials"
)

func TestSealed_RoundTrip(t *testing.T) {
	id, err := age.GenerateX25519Identity()
	require.NoError(t, err)

	sealed, err := credentials.Seal("s3cret", id.Recipient().String())
	require.NoError(t, err)

	src := credentials.NewSealed(sealed, id.String(), "")
	got, err := src.Password(context.Background())
	require.NoError(t, err)
	require.Equal(t, "s3cret", got)
}

func TestSealed_IdentityFile(t *testing.T) {
	id, err := age.GenerateX25519Identity()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "identity.txt")
	require.NoError(t, os.WriteFile(path, []byte("# courier key\n"+id.String()+"\n"), 0o600))

	sealed, err := credentials.Seal("pw", id.Recipient().String())
	require.NoError(t, err)

	got, err := credentials.NewSealed(sealed, "", path).Password(context.Background())
	require.NoError(t, err)
	require.Equal(t, "pw", got)
}

func TestSealed_WrongIdentity(t *testing.T) {
	owner, err := age.GenerateX25519Identity()
	require.NoError(t, err)
	other, err := age.GenerateX25519Identity()
	require.NoError(t, err)

	sealed, err := credentials.Seal("pw", owner.Recipient().String())
	require.NoError(t, err)

	_, err = credentials.NewSealed(sealed, other.String(), "").Password(context.Background())
	require.Error(t, err)
}

func TestSealed_Misconfigured(t *testing.T) {
	_, err := credentials.NewSealed("not-base64!", "", "").Password(context.Background())
	require.Error(t, err)

	id, err := age.GenerateX25519Identity()
	require.NoError(t, err)
	_, err = credentials.NewSealed("not-base64!", id.String(), "").Password(context.Background())
	require.Error(t, err)
}

func TestSeal_RequiresRecipient(t *testing.T) {
	_, err := credentials.Seal("pw")
	require.Error(t, err)

	_, err = credentials.Seal("pw", "not-a-key")
	require.Error(t, err)
}

func TestStatic(t *testing.T) {
	got, err := credentials.Static("plain").Password(context.Background())
	require.NoError(t, err)
	require.Equal(t, "plain", got)
}
