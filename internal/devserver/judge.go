package devserver

import (
	"math/rand"
	"strings"
	"sync"

	"github.com/codeduel-live/arena-client/internal/devserver/store"
	"github.com/codeduel-live/arena-client/internal/protocol"
)

// Judge produces heuristic verdicts. It never runs code: submissions
// that look like a real attempt pass, the rest fail a test case. Good
// enough to drive the battle flow end to end.
type Judge struct {
	mu       sync.Mutex
	problems []store.Problem
	rng      *rand.Rand
}

func NewJudge(problems []store.Problem, seed int64) *Judge {
	return &Judge{
		problems: problems,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

func (j *Judge) PickProblem() store.Problem {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.problems[j.rng.Intn(len(j.problems))]
}

func (j *Judge) Evaluate(code, language string, problemID int) protocol.SubmissionUpdate {
	passes := looksLikeSolution(code, language)

	results := []protocol.TestCaseResult{
		{Status: "passed"},
		{Status: "passed"},
		{Status: "passed"},
	}
	status := "Accepted"
	if !passes {
		status = "Wrong Answer"
		results[2] = protocol.TestCaseResult{Status: "failed", Input: "edge case", Output: "incorrect"}
	}

	return protocol.SubmissionUpdate{
		Status:          status,
		ExecutionTime:   float64(20+len(code)%80) / 1000,
		MemoryUsed:      1024 + len(code),
		DetailedResults: results,
	}
}

func looksLikeSolution(code, language string) bool {
	code = strings.ToLower(code)
	switch language {
	case "python":
		return strings.Contains(code, "return") || strings.Contains(code, "print")
	case "go":
		return strings.Contains(code, "func") && strings.Contains(code, "return")
	default:
		return strings.Contains(code, "return")
	}
}
