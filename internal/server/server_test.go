package server_test

import (
	"context"
	"encoding/base64"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/clinic-menu-ocr/constants"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/common"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/entity"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/ingest"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/pipeline"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/repository"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/server"
)

type fakeBackend struct {
	uploads []ingest.Upload
	opts    pipeline.RunOptions
	regen   []entity.PackageRow
}

func (f *fakeBackend) Process(_ context.Context, uploads []ingest.Upload, opts pipeline.RunOptions) (*pipeline.Outcome, error) {
	f.uploads, f.opts = uploads, opts
	if len(uploads) == 0 {
		return nil, common.NewInputError(common.CodeNoFiles, "No file provided.")
	}
	price := 120.0
	return &pipeline.Outcome{Batch: &entity.Batch{
		ID:       "b_20240101_000000_abcd",
		Status:   constants.BatchStatusExtracted,
		Files:    []entity.FileMeta{{FileID: "f1", OriginalName: uploads[0].FileName, PageCount: 1}},
		Packages: []entity.PackageRow{{Title: "Facial", Price: &price, Currency: "USD", Status: "active", Meta: entity.Meta{Warnings: []string{}}}},
		Summary:  entity.Summary{Total: 1, Valid: 1},
	}}, nil
}

func (f *fakeBackend) RegenerateCSV(_ context.Context, _ string, rows []entity.PackageRow, _ pipeline.RunOptions) (*pipeline.RegenerateResult, error) {
	f.regen = rows
	return &pipeline.RegenerateResult{Packages: rows, Summary: entity.Summary{Total: len(rows)}, CSV: []byte("title\n")}, nil
}

func (f *fakeBackend) GetBatch(_ context.Context, id string) (*entity.Batch, error) {
	return nil, common.NewAppError(common.CodeNotFound, "batch "+id+" not found", common.ErrNotFound)
}

func (f *fakeBackend) ListBatches(context.Context, int) ([]repository.BatchSummary, error) {
	return []repository.BatchSummary{{ID: "b_1", Status: constants.BatchStatusExtracted}}, nil
}

func dial(t *testing.T, backend server.Backend) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	server.Register(srv, server.NewMenuService(backend, nil))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func call(t *testing.T, conn *grpc.ClientConn, method string, req map[string]any) (*structpb.Struct, error) {
	t.Helper()
	in, err := structpb.NewStruct(req)
	if err != nil {
		t.Fatal(err)
	}
	out := new(structpb.Struct)
	err = conn.Invoke(context.Background(), "/"+server.ServiceName+"/"+method, in, out)
	return out, err
}

func TestProcessUpload(t *testing.T) {
	backend := &fakeBackend{}
	conn := dial(t, backend)

	out, err := call(t, conn, "ProcessUpload", map[string]any{
		"files": []any{map[string]any{
			"field_name": "file",
			"file_name":  "menu.png",
			"mime_type":  "image/png",
			"data":       base64.StdEncoding.EncodeToString([]byte("png bytes")),
		}},
		"forwardToImporter": true,
		"clearExisting":     false,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := string(backend.uploads[0].Data); got != "png bytes" {
		t.Errorf("data = %q", got)
	}
	if !backend.opts.Forward || backend.opts.ClearExisting == nil || *backend.opts.ClearExisting || backend.opts.ConfirmAutoCreate != nil {
		t.Errorf("opts = %+v", backend.opts)
	}

	m := out.AsMap()
	if m["success"] != true || m["batch_id"] != "b_20240101_000000_abcd" {
		t.Errorf("response = %v", m)
	}
	pkgs := m["packages"].([]any)
	if pkgs[0].(map[string]any)["price"] != 120.0 {
		t.Errorf("packages = %v", pkgs)
	}
	if m["summary"].(map[string]any)["valid"] != 1.0 {
		t.Errorf("summary = %v", m["summary"])
	}
}

func TestErrorsMapToStatusCodes(t *testing.T) {
	conn := dial(t, &fakeBackend{})
	tests := []struct {
		method string
		req    map[string]any
		code   codes.Code
	}{
		{"ProcessUpload", map[string]any{}, codes.InvalidArgument},
		{"GetBatch", map[string]any{"batch_id": "b_missing"}, codes.NotFound},
		{"GetBatch", map[string]any{}, codes.InvalidArgument},
		{"RegenerateCSV", map[string]any{"batch_id": "b_1"}, codes.InvalidArgument},
		{"ProcessDirectory", map[string]any{"root_path": " "}, codes.InvalidArgument},
		{"ProcessUpload", map[string]any{"files": "not a list"}, codes.InvalidArgument},
	}
	for _, tc := range tests {
		_, err := call(t, conn, tc.method, tc.req)
		if got := status.Code(err); got != tc.code {
			t.Errorf("%s(%v) code = %v, want %v (err %v)", tc.method, tc.req, got, tc.code, err)
		}
	}
}

func TestRegenerateCSV_NormalizesInput(t *testing.T) {
	backend := &fakeBackend{}
	conn := dial(t, backend)
	out, err := call(t, conn, "RegenerateCSV", map[string]any{
		"batch_id": "b_1",
		"packages": []any{map[string]any{
			"title": "Botox", "hospital_name": "Pruksa Clinic", "treatment_name": "Botox",
			"price": "3,500", "currency": "฿", "featured": "yes",
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	row := backend.regen[0]
	if row.Price == nil || *row.Price != 3500 || row.Currency != "THB" || !row.Featured || row.TreatmentName != "Botox Treatment" {
		t.Errorf("row = %+v", row)
	}
	if out.AsMap()["csv"] != "title\n" {
		t.Errorf("csv = %v", out.AsMap()["csv"])
	}
}

func TestListBatches(t *testing.T) {
	conn := dial(t, &fakeBackend{})
	out, err := call(t, conn, "ListBatches", map[string]any{"limit": 5})
	if err != nil {
		t.Fatal(err)
	}
	list := out.AsMap()["batches"].([]any)
	if len(list) != 1 || list[0].(map[string]any)["batch_id"] != "b_1" {
		t.Errorf("batches = %v", list)
	}
}

func TestRegisterServiceInfo(t *testing.T) {
	srv := grpc.NewServer()
	server.Register(srv, server.NewMenuService(&fakeBackend{}, nil))

	info, ok := srv.GetServiceInfo()[server.ServiceName]
	if !ok {
		t.Fatalf("%s not registered", server.ServiceName)
	}
	if info.Metadata != nil && info.Metadata != "" {
		t.Errorf("metadata = %v, want none (no descriptor is registered)", info.Metadata)
	}
	names := map[string]bool{}
	for _, m := range info.Methods {
		names[m.Name] = true
	}
	for _, want := range []string{"ProcessUpload", "ProcessDirectory", "RegenerateCSV", "GetBatch", "ListBatches"} {
		if !names[want] {
			t.Errorf("method %s missing from %v", want, info.Methods)
		}
	}
}
