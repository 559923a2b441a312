package orchestrator

import (
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/epi-console/internal/core/domain"
)

func TestContractReportsAllViolations(t *testing.T) {
	contract := mustContract(t)

	req := validRequest()
	req.FaceEvent.Confidence = -0.1
	req.EpiEvents[0].Confidence = 2
	err := contract.ValidateRequest(req)

	var contractErr *ContractError
	if !errors.As(err, &contractErr) {
		t.Fatalf("expected contract error, got %v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "face_event") || !strings.Contains(msg, "epi_events") {
		t.Fatalf("expected both violations reported, got %s", msg)
	}
}

func TestContractAcceptsNamedPerson(t *testing.T) {
	req := validRequest()
	person := "FUNC-001"
	req.PersonID = &person
	req.FaceEvent.PersonID = &person

	if err := mustContract(t).ValidateRequest(req); err != nil {
		t.Fatalf("ValidateRequest() error = %v", err)
	}
}

func TestNilContractSkipsValidation(t *testing.T) {
	var contract *Contract
	if err := contract.ValidateRequest(domain.OrchestrationRequest{}); err != nil {
		t.Fatalf("expected nil contract to accept anything, got %v", err)
	}
}

func TestLoadContractRejectsBrokenDocument(t *testing.T) {
	if _, err := loadContract([]byte("openapi: 3.0.3\ninfo: {title: x, version: '1'}\npaths: {}\n")); err == nil {
		t.Fatalf("expected error for a document without the request schema")
	}
}
