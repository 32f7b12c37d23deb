package datasource

import (
	"context"
	"testing"
)

func TestBytes(t *testing.T) {
	src := Bytes{Label: "upload.csv", Data: []byte("a,b\n")}
	if src.Name() != "upload.csv" {
		t.Fatalf("Name() = %q", src.Name())
	}
	got, err := src.ReadText(context.Background())
	if err != nil || string(got) != "a,b\n" {
		t.Fatalf("ReadText = %q, %v", got, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.ReadText(ctx); err == nil {
		t.Fatalf("expected context error")
	}
}
