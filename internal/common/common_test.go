package common_test

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/clinic-menu-ocr/internal/common"
)

func TestInputErrorStatus(t *testing.T) {
	cases := []struct {
		code string
		want int
		base error
	}{
		{common.CodeNoFiles, http.StatusBadRequest, common.ErrInvalidInput},
		{common.CodeUnsupportedFileType, http.StatusBadRequest, common.ErrInvalidInput},
		{common.CodeFileTooLarge, http.StatusRequestEntityTooLarge, common.ErrTooLarge},
	}
	for _, c := range cases {
		err := common.NewInputError(c.code, "nope")
		if got := common.HTTPStatus(err); got != c.want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", c.code, got, c.want)
		}
		if !errors.Is(err, c.base) {
			t.Errorf("%s should wrap %v", c.code, c.base)
		}
	}
}

func TestAppErrorIsByCode(t *testing.T) {
	err := common.WrapError(common.NewAppError(common.CodeLLMUnavailable, "throttled", nil), "file menu.pdf")
	if !errors.Is(err, &common.AppError{Code: common.CodeLLMUnavailable}) {
		t.Error("errors.Is should match by code through wrapping")
	}
	if errors.Is(err, &common.AppError{Code: common.CodeLLMAuth}) {
		t.Error("errors.Is matched a different code")
	}
	if got := common.CodeOf(err); got != common.CodeLLMUnavailable {
		t.Errorf("CodeOf = %q", got)
	}
}

func TestToGRPCStatus(t *testing.T) {
	err := common.ToGRPCStatus(common.NewInputError(common.CodeFileTooLarge, "big"))
	if status.Code(err) != codes.ResourceExhausted {
		t.Errorf("code = %v, want ResourceExhausted", status.Code(err))
	}
	if common.ToGRPCStatus(nil) != nil {
		t.Error("nil should stay nil")
	}
	if status.Code(common.ToGRPCStatus(errors.New("boom"))) != codes.Internal {
		t.Error("plain errors should map to Internal")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("OCR_TIMEOUT", "90000")
	t.Setenv("AWS_REGION", "")
	t.Setenv("AWS_BEDROCK_REGION", "ap-southeast-1")
	t.Setenv("OCR_DEBUG", "yes")

	cfg := common.LoadConfig()
	if cfg.OCR.Timeout != 90*time.Second {
		t.Errorf("OCR timeout = %v, want 90s", cfg.OCR.Timeout)
	}
	if cfg.LLM.Region != "ap-southeast-1" {
		t.Errorf("region = %q", cfg.LLM.Region)
	}
	if !cfg.OCR.Debug {
		t.Error("OCR_DEBUG=yes should enable debug")
	}
	if cfg.OCR.MaxFileBytes() != 50<<20 {
		t.Errorf("max bytes = %d", cfg.OCR.MaxFileBytes())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := common.LoadConfig()
	cfg.LLM.Provider = "openai"
	cfg.LLM.OpenAIAPIKey = ""
	cfg.OCR.PSM = 42
	err := cfg.Validate()
	if common.CodeOf(err) != common.CodeConfig {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestTruncate(t *testing.T) {
	if got := common.Truncate("abc", 5); got != "abc" {
		t.Errorf("short string changed: %q", got)
	}
	if got := common.Truncate("héllo", 2); got != "h...(truncated)" {
		t.Errorf("truncate should back off to a rune boundary, got %q", got)
	}
}
