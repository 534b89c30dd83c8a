package certificate

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/p-n-ai/pai-kiu/internal/assessment"
	"github.com/p-n-ai/pai-kiu/internal/kiu"
)

const material = "The Café & Bar, Inc. serves coffee. It opened in 1999."

func newTestService() (*Service, *MemoryStore) {
	store := NewMemoryStore()
	svc := NewService(store, NewComposer([]byte("key")))
	svc.now = func() time.Time { return time.Date(2025, 4, 5, 12, 0, 0, 0, time.UTC) }
	return svc, store
}

func TestService_Issue(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	issued, err := svc.Issue(ctx, IssueRequest{
		UserID:        "u1",
		Name:          "  Ada Lovelace ",
		Email:         " Ada@Example.COM ",
		EmailVerified: true,
		Score:         80,
		OriginalText:  material,
		Source:        &assessment.Source{Type: assessment.SourceText},
	})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	rec := issued.Record
	if rec.ID == "" {
		t.Error("record id should be assigned")
	}
	if rec.Email != "ada@example.com" || rec.Name != "Ada Lovelace" {
		t.Errorf("record = %+v", rec)
	}
	if rec.Title != "The Café & Bar, Inc" {
		t.Errorf("Title = %q", rec.Title)
	}
	if issued.Filename != "the-caf-bar-inc-certificate.pdf" {
		t.Errorf("Filename = %q", issued.Filename)
	}
	want, _ := kiu.Score(material)
	if rec.KIU != want {
		t.Errorf("KIU = %+v, want recomputed %+v", rec.KIU, want)
	}
	if !bytes.HasPrefix(issued.PDF, []byte("%PDF-")) {
		t.Error("PDF missing")
	}
	if rec.VerificationCode == "" {
		t.Error("verification code missing")
	}

	list, err := svc.List(ctx, "ADA@example.com")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 || list[0].ID != rec.ID {
		t.Errorf("List() = %+v", list)
	}
}

func TestService_Issue_Rejections(t *testing.T) {
	base := IssueRequest{Name: "Ada", Email: "a@b.c", EmailVerified: true, Score: 90, OriginalText: material}

	tests := []struct {
		name   string
		mutate func(r *IssueRequest)
		want   error
	}{
		{"unverified email", func(r *IssueRequest) { r.EmailVerified = false }, ErrEmailNotVerified},
		{"below pass mark", func(r *IssueRequest) { r.Score = 79 }, ErrNotEligible},
		{"blank name", func(r *IssueRequest) { r.Name = "  " }, ErrNameRequired},
		{"blank email", func(r *IssueRequest) { r.Email = " " }, ErrEmailRequired},
		{"empty material", func(r *IssueRequest) { r.OriginalText = "" }, kiu.ErrEmptyText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService()
			req := base
			tt.mutate(&req)

			if _, err := svc.Issue(context.Background(), req); !errors.Is(err, tt.want) {
				t.Fatalf("Issue() error = %v, want %v", err, tt.want)
			}
			if len(store.records) != 0 {
				t.Error("nothing should be stored on rejection")
			}
		})
	}
}

func TestService_Download(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	issued, err := svc.Issue(ctx, IssueRequest{Name: "Ada", Email: "ada@example.com", EmailVerified: true, Score: 100, OriginalText: material})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	got, err := svc.Download(ctx, issued.Record.ID, "ADA@example.com")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if got.Filename != issued.Filename || !bytes.HasPrefix(got.PDF, []byte("%PDF-")) {
		t.Errorf("Download() = %q, %d bytes", got.Filename, len(got.PDF))
	}

	if _, err := svc.Download(ctx, issued.Record.ID, "eve@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Download() by another user error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Download(ctx, "missing", "ada@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Download() unknown id error = %v, want ErrNotFound", err)
	}
}

func TestService_Verify(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	issued, err := svc.Issue(ctx, IssueRequest{Name: "Ada", Email: "ada@example.com", EmailVerified: true, Score: 90, OriginalText: material})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	id, code := issued.Record.ID, issued.Record.VerificationCode

	tests := []struct {
		name string
		code string
		want bool
	}{
		{"exact", code, true},
		{"lowercase with spaces", " " + strings.ToLower(code) + " ", true},
		{"wrong", "KIU-0000-0000-0000-0000", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok, err := svc.Verify(ctx, id, tt.code)
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if ok != tt.want {
				t.Errorf("Verify() = %v, want %v", ok, tt.want)
			}
			if rec.ID != id {
				t.Errorf("record id = %q, want %q", rec.ID, id)
			}
		})
	}

	if _, _, err := svc.Verify(ctx, "missing", code); !errors.Is(err, ErrNotFound) {
		t.Errorf("Verify() unknown id error = %v, want ErrNotFound", err)
	}
}

func TestService_ListAndExport_RequireEmail(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.List(context.Background(), ""); !errors.Is(err, ErrEmailRequired) {
		t.Errorf("List() error = %v, want ErrEmailRequired", err)
	}
	if _, err := svc.Export(context.Background(), " "); !errors.Is(err, ErrEmailRequired) {
		t.Errorf("Export() error = %v, want ErrEmailRequired", err)
	}
}

func TestMemoryStore_ListNewestFirst(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, _ = store.Save(ctx, Record{Email: "a@b.c", Title: "old", Date: older})
	_, _ = store.Save(ctx, Record{Email: "a@b.c", Title: "new", Date: older.AddDate(0, 1, 0)})
	_, _ = store.Save(ctx, Record{Email: "x@y.z", Title: "other", Date: older})

	list, err := store.ListByEmail(ctx, "A@B.C")
	if err != nil {
		t.Fatalf("ListByEmail() error = %v", err)
	}
	if len(list) != 2 || list[0].Title != "new" || list[1].Title != "old" {
		t.Errorf("ListByEmail() = %+v", list)
	}
}
