package secrets

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

type fakeSSM struct {
	value *string
	err   error
	calls int
	in    *ssm.GetParameterInput
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.calls++
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Value: f.value}}, nil
}

func TestLoadResendKey_ConfigWins(t *testing.T) {
	f := &fakeSSM{value: aws.String("from-ssm")}
	key, src, err := LoadResendKey(context.Background(), Options{APIKey: " re_cfg ", SSMParam: "/p", Client: f})
	if err != nil || key != "re_cfg" || src != SourceConfig {
		t.Fatalf("got %q %q %v", key, src, err)
	}
	if f.calls != 0 {
		t.Fatal("SSM consulted although a key was configured")
	}
}

func TestLoadResendKey_None(t *testing.T) {
	key, src, err := LoadResendKey(context.Background(), Options{})
	if err != nil || key != "" || src != SourceNone {
		t.Fatalf("got %q %q %v", key, src, err)
	}
}

func TestLoadResendKey_SSM(t *testing.T) {
	f := &fakeSSM{value: aws.String("re_ssm\n")}
	key, src, err := LoadResendKey(context.Background(), Options{SSMParam: "/app/ntek-web/resend-api-key", Client: f})
	if err != nil || key != "re_ssm" || src != SourceSSM {
		t.Fatalf("got %q %q %v", key, src, err)
	}
	if aws.ToString(f.in.Name) != "/app/ntek-web/resend-api-key" || !aws.ToBool(f.in.WithDecryption) {
		t.Fatalf("input = %+v", f.in)
	}
}

func TestLoadResendKey_SSMErrors(t *testing.T) {
	cases := map[string]*fakeSSM{
		"get SSM parameter": {err: errors.New("AccessDenied")},
		"has no value":      {},
		"is empty":          {value: aws.String("   ")},
	}
	for want, f := range cases {
		_, src, err := LoadResendKey(context.Background(), Options{SSMParam: "/p", Client: f})
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Errorf("err = %v, want containing %q", err, want)
		}
		if src != SourceNone {
			t.Errorf("src = %q on error", src)
		}
	}
}
