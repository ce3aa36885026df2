package salesforce

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateContact(t *testing.T) {
	t.Run("links account when provided", func(t *testing.T) {
		client := &mockClient{
			insertOneFn: func(ctx context.Context, name string, record map[string]any) (string, error) {
				assert.Equal(t, "Contact", name)
				assert.Equal(t, "001xx", record["AccountId"])
				assert.Equal(t, "Lovelace", record["LastName"])
				return "003new", nil
			},
		}

		id, err := CreateContact(context.Background(), client, "001xx", map[string]any{
			"FirstName": "Ada",
			"LastName":  "Lovelace",
		})
		require.NoError(t, err)
		assert.Equal(t, "003new", id)
	})

	t.Run("no account link when empty", func(t *testing.T) {
		client := &mockClient{
			insertOneFn: func(ctx context.Context, name string, record map[string]any) (string, error) {
				_, ok := record["AccountId"]
				assert.False(t, ok)
				return "003new", nil
			},
		}

		_, err := CreateContact(context.Background(), client, "", map[string]any{"LastName": "Lovelace"})
		require.NoError(t, err)
	})

	t.Run("requires LastName", func(t *testing.T) {
		client := &mockClient{}
		_, err := CreateContact(context.Background(), client, "", map[string]any{"FirstName": "Ada"})
		require.Error(t, err)
	})
}

func TestUpdateContact(t *testing.T) {
	t.Run("updates fields", func(t *testing.T) {
		client := &mockClient{
			updateOneFn: func(ctx context.Context, name string, id string, fields map[string]any) error {
				assert.Equal(t, "Contact", name)
				assert.Equal(t, "003xx", id)
				assert.Equal(t, "+15551234", fields["Phone"])
				return nil
			},
		}
		err := UpdateContact(context.Background(), client, "003xx", map[string]any{"Phone": "+15551234"})
		require.NoError(t, err)
	})

	t.Run("requires id", func(t *testing.T) {
		err := UpdateContact(context.Background(), &mockClient{}, "", map[string]any{"Phone": "x"})
		require.Error(t, err)
	})

	t.Run("requires fields", func(t *testing.T) {
		err := UpdateContact(context.Background(), &mockClient{}, "003xx", nil)
		require.Error(t, err)
	})
}

func TestCreateAccount(t *testing.T) {
	t.Run("requires Name", func(t *testing.T) {
		_, err := CreateAccount(context.Background(), &mockClient{}, map[string]any{})
		require.Error(t, err)
	})

	t.Run("returns id", func(t *testing.T) {
		client := &mockClient{
			insertOneFn: func(ctx context.Context, name string, record map[string]any) (string, error) {
				assert.Equal(t, "Account", name)
				return "001new", nil
			},
		}
		id, err := CreateAccount(context.Background(), client, map[string]any{"Name": "Acme"})
		require.NoError(t, err)
		assert.Equal(t, "001new", id)
	})
}
