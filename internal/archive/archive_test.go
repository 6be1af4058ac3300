package archive

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

type fakePutter struct {
	bucket, key string
	body        []byte
	err         error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.bucket, f.key = *in.Bucket, *in.Key
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestKey(t *testing.T) {
	got := Key("TFM Counter Web App", "tfm_data_2024-03-01.json")
	if got != "exports/tfm-counter-web-app/tfm_data_2024-03-01.json" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestStore(t *testing.T) {
	fake := &fakePutter{}
	a := NewWithClient(fake, "backups", zerolog.Nop())

	key, err := a.Store(context.Background(), "tfm_data_2024-03-01.json", []byte(`{"players":[]}`))
	if err != nil {
		t.Fatal(err)
	}
	if fake.bucket != "backups" || fake.key != key || string(fake.body) != `{"players":[]}` {
		t.Errorf("unexpected upload %+v", fake)
	}

	fake.err = errors.New("denied")
	if _, err := a.Store(context.Background(), "x.json", nil); err == nil {
		t.Error("expected upload error")
	}
}

func TestNilArchiverIsNoop(t *testing.T) {
	var a *Archiver
	if a.Enabled() {
		t.Error("nil archiver reports enabled")
	}
	if key, err := a.Store(context.Background(), "x.json", []byte("{}")); key != "" || err != nil {
		t.Errorf("expected no-op, got %q %v", key, err)
	}
}
