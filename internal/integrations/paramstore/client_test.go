package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	getOut *ssm.GetParameterOutput
	getErr error
	gotIn  *ssm.GetParameterInput
}

func (f *fakeAPI) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.gotIn = in
	return f.getOut, f.getErr
}

func strPtr(s string) *string { return &s }

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestGetParameter_HappyPath(t *testing.T) {
	api := &fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{
		Name: strPtr("/billchat/agent-key"), Value: strPtr(" secret \n"),
	}}}
	client, err := New(api)
	require.NoError(t, err)

	v, err := client.GetParameter(context.Background(), "/billchat/agent-key")
	require.NoError(t, err)
	require.Equal(t, "secret", v)
	require.NotNil(t, api.gotIn.WithDecryption)
	require.True(t, *api.gotIn.WithDecryption)
}

func TestGetParameter_Errors(t *testing.T) {
	client, err := New(&fakeAPI{getErr: errors.New("boom")})
	require.NoError(t, err)

	_, err = client.GetParameter(context.Background(), "  ")
	require.Error(t, err)

	_, err = client.GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "boom")

	client, err = New(&fakeAPI{getOut: &ssm.GetParameterOutput{}})
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "missing value")
}

type fakeGetter struct {
	value string
	calls int
}

func (f *fakeGetter) GetParameter(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.value, nil
}

func TestResolveKey(t *testing.T) {
	g := &fakeGetter{value: "from-ssm"}

	key, err := ResolveKey(context.Background(), g, "explicit", "/p")
	require.NoError(t, err)
	require.Equal(t, "explicit", key)
	require.Equal(t, 0, g.calls)

	key, err = ResolveKey(context.Background(), g, "", "/p")
	require.NoError(t, err)
	require.Equal(t, "from-ssm", key)

	key, err = ResolveKey(context.Background(), g, "", "")
	require.NoError(t, err)
	require.Empty(t, key)
}
