// Package coordinator sequences a team of agents toward one overall task.
// Each round it asks a decision model which agent should act next, dispatches
// that agent's conversation loop, and records the outcome. Malformed
// decisions never abort a round; they are repaired with deterministic
// fallbacks so a flaky decision model degrades to round-robin-ish behavior
// instead of a crash.
package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hdlforge/go-hdlforge/src/events"
	"github.com/hdlforge/go-hdlforge/src/models"
	"github.com/hdlforge/go-hdlforge/src/toolcall"
	"github.com/hdlforge/go-hdlforge/src/trace"
)

// Capability labels what kind of work an agent is suited for. They are
// configuration, declared at registration; nothing computes them.
type Capability string

const (
	CapabilityDesign     Capability = "design"
	CapabilityReview     Capability = "review"
	CapabilitySimulation Capability = "simulation"
)

// Worker is the slice of the agent runtime the coordinator needs.
type Worker interface {
	ID() string
	Process(ctx context.Context, sessionID, input string) (string, error)
}

// AgentRecord tracks one registered agent's capabilities and running totals.
type AgentRecord struct {
	Worker        Worker
	Capabilities  []Capability
	Status        string // "idle" or "working"
	Completed     int
	Failed        int
	TotalDuration time.Duration
}

// SuccessRate is completed over all finished dispatches, 0 when none ran.
func (r *AgentRecord) SuccessRate() float64 {
	total := r.Completed + r.Failed
	if total == 0 {
		return 0
	}
	return float64(r.Completed) / float64(total)
}

// AverageDuration is the mean wall time per finished dispatch.
func (r *AgentRecord) AverageDuration() time.Duration {
	total := r.Completed + r.Failed
	if total == 0 {
		return 0
	}
	return r.TotalDuration / time.Duration(total)
}

func (r *AgentRecord) hasCapability(c Capability) bool {
	for _, cap := range r.Capabilities {
		if cap == c {
			return true
		}
	}
	return false
}

// DecisionKind is what the decision model asked for this round.
type DecisionKind string

const (
	DecisionAssignTask           DecisionKind = "assign_task"
	DecisionCompleteTask         DecisionKind = "complete_task"
	DecisionRequestClarification DecisionKind = "request_clarification"
	DecisionContinueConversation DecisionKind = "continue_conversation"
)

// Decision is the parsed and validated output of one ANALYZE step.
type Decision struct {
	Kind            DecisionKind `json:"decision"`
	SelectedAgentID string       `json:"selected_agent_id,omitempty"`
	TaskDescription string       `json:"task_description,omitempty"`
	Reason          string       `json:"reason,omitempty"`
}

const (
	defaultMaxRounds     = 6
	defaultCompleteAfter = 2
)

// Options configure a Coordinator.
type Options struct {
	Decider       models.Agent // decision model for the ANALYZE step
	MaxRounds     int          // liveness guard; default 6
	CompleteAfter int          // successful tasks before early completion; default 2
	Store         trace.Store  // optional task persistence
	Sink          events.Sink
}

// Coordinator runs the ANALYZE/DISPATCH/COLLECT loop over registered agents.
type Coordinator struct {
	decider       models.Agent
	agents        []*AgentRecord // registration order, used by the fallback
	byID          map[string]*AgentRecord
	maxRounds     int
	completeAfter int
	store         trace.Store
	sink          events.Sink
}

// New creates a Coordinator with the provided options.
func New(opts Options) (*Coordinator, error) {
	if opts.Decider == nil {
		return nil, errors.New("coordinator requires a decision model")
	}
	maxRounds := opts.MaxRounds
	if maxRounds <= 0 {
		maxRounds = defaultMaxRounds
	}
	completeAfter := opts.CompleteAfter
	if completeAfter <= 0 {
		completeAfter = defaultCompleteAfter
	}
	return &Coordinator{
		decider:       opts.Decider,
		byID:          make(map[string]*AgentRecord),
		maxRounds:     maxRounds,
		completeAfter: completeAfter,
		store:         opts.Store,
		sink:          opts.Sink,
	}, nil
}

// Register adds an agent with its declared capabilities. Registration order
// matters: the deterministic fallback walks agents in this order.
func (c *Coordinator) Register(worker Worker, capabilities ...Capability) error {
	if worker == nil {
		return errors.New("worker is nil")
	}
	id := strings.TrimSpace(worker.ID())
	if id == "" {
		return errors.New("worker has an empty id")
	}
	if _, exists := c.byID[id]; exists {
		return fmt.Errorf("agent %q is already registered", id)
	}
	record := &AgentRecord{Worker: worker, Capabilities: capabilities, Status: "idle"}
	c.agents = append(c.agents, record)
	c.byID[id] = record
	return nil
}

// Agents returns the registered records in registration order.
func (c *Coordinator) Agents() []*AgentRecord { return c.agents }

// Report is the outcome of one Run.
type Report struct {
	SessionID string
	Tasks     []trace.TaskRecord
	Rounds    int
	Completed bool // true when the run ended via complete_task or the threshold
}

// Run drives the task through up to MaxRounds rounds. One agent's failure is
// recorded and the loop continues; only a dead decision model or a canceled
// context aborts the run.
func (c *Coordinator) Run(ctx context.Context, sessionID, task string) (*Report, error) {
	if len(c.agents) == 0 {
		return nil, errors.New("no agents registered")
	}
	if strings.TrimSpace(sessionID) == "" {
		sessionID = uuid.NewString()
	}

	report := &Report{SessionID: sessionID}
	successes := 0

	for round := 1; round <= c.maxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Rounds = round

		decision, err := c.analyze(ctx, task, successes)
		if err != nil {
			return report, fmt.Errorf("decision model: %w", err)
		}

		if decision.Kind == DecisionCompleteTask {
			report.Completed = true
			return report, nil
		}
		if decision.Kind != DecisionAssignTask {
			// request_clarification / continue_conversation: nothing to
			// dispatch in a non-interactive run, the round is spent.
			continue
		}

		record := c.byID[decision.SelectedAgentID]
		description := decision.TaskDescription
		if strings.TrimSpace(description) == "" {
			description = task
		}

		taskRecord := c.dispatch(ctx, record, sessionID, description)
		report.Tasks = append(report.Tasks, taskRecord)
		if taskRecord.Status == "completed" {
			successes++
		}
		if c.store != nil {
			_ = c.store.SaveTask(ctx, taskRecord)
		}

		if successes >= c.completeAfter {
			report.Completed = true
			return report, nil
		}
	}
	return report, nil
}

// analyze runs one ANALYZE step: prompt the decider, parse its JSON, then
// repair anything invalid. The validation stage is pure so it can be tested
// without a model.
func (c *Coordinator) analyze(ctx context.Context, task string, successes int) (Decision, error) {
	raw, err := c.decider.Generate(ctx, c.analysisPrompt(task, successes))
	if err != nil {
		return Decision{}, err
	}
	text := fmt.Sprintf("%v", raw)
	return c.validateDecision(parseDecision(text), successes), nil
}

func (c *Coordinator) analysisPrompt(task string, successes int) string {
	var sb strings.Builder
	sb.WriteString("You coordinate a team of agents working on this task:\n")
	sb.WriteString(task)
	sb.WriteString("\n\nAgents:\n")
	for _, record := range c.agents {
		caps := make([]string, 0, len(record.Capabilities))
		for _, cap := range record.Capabilities {
			caps = append(caps, string(cap))
		}
		fmt.Fprintf(&sb, "- %s (capabilities: %s; completed: %d, failed: %d)\n",
			record.Worker.ID(), strings.Join(caps, ", "), record.Completed, record.Failed)
	}
	fmt.Fprintf(&sb, "\nTasks completed so far: %d.\n", successes)
	sb.WriteString("Respond with JSON only: ")
	sb.WriteString(`{"decision": "assign_task|complete_task|request_clarification|continue_conversation", "selected_agent_id": "...", "task_description": "...", "reason": "..."}`)
	return sb.String()
}

// parseDecision extracts the first JSON object from the model text. Anything
// unparsable becomes an empty decision, which validation then repairs.
func parseDecision(text string) Decision {
	var decision Decision
	payload := toolcall.ExtractJSON(text)
	if payload == "" {
		return decision
	}
	_ = json.Unmarshal([]byte(payload), &decision)
	return decision
}

// validateDecision repairs unknown decision kinds and unknown agent ids.
// It never fails: an unusable decision degrades to assigning the fallback
// agent for this stage of the run.
func (c *Coordinator) validateDecision(decision Decision, successes int) Decision {
	switch decision.Kind {
	case DecisionAssignTask, DecisionCompleteTask, DecisionRequestClarification, DecisionContinueConversation:
	default:
		decision.Kind = DecisionAssignTask
	}
	if decision.Kind != DecisionAssignTask {
		return decision
	}
	if _, known := c.byID[decision.SelectedAgentID]; !known {
		decision.SelectedAgentID = c.fallbackAgent(successes).Worker.ID()
	}
	return decision
}

// fallbackAgent picks deterministically: design work first, review once
// something has been produced, first registered agent as the final default.
func (c *Coordinator) fallbackAgent(successes int) *AgentRecord {
	want := CapabilityDesign
	if successes > 0 {
		want = CapabilityReview
	}
	for _, record := range c.agents {
		if record.hasCapability(want) {
			return record
		}
	}
	return c.agents[0]
}

// dispatch runs one agent to completion and converts the outcome, including
// a panic inside the agent, into a task record.
func (c *Coordinator) dispatch(ctx context.Context, record *AgentRecord, sessionID, description string) trace.TaskRecord {
	taskRecord := trace.TaskRecord{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		AgentID:     record.Worker.ID(),
		Description: description,
		CreatedAt:   time.Now(),
	}

	record.Status = "working"
	start := time.Now()
	output, err := safeProcess(ctx, record.Worker, sessionID, description)
	taskRecord.Duration = time.Since(start)
	record.Status = "idle"
	record.TotalDuration += taskRecord.Duration

	if err != nil {
		record.Failed++
		taskRecord.Status = "failed"
		taskRecord.Error = err.Error()
		events.Emit(c.sink, events.Event{
			Kind:      events.TaskFailed,
			SessionID: sessionID,
			AgentID:   taskRecord.AgentID,
			Duration:  taskRecord.Duration,
			Error:     taskRecord.Error,
		})
		return taskRecord
	}

	record.Completed++
	taskRecord.Status = "completed"
	taskRecord.Output = output
	taskRecord.Artifacts = extractArtifacts(output)
	events.Emit(c.sink, events.Event{
		Kind:      events.TaskCompleted,
		SessionID: sessionID,
		AgentID:   taskRecord.AgentID,
		Duration:  taskRecord.Duration,
		Success:   true,
	})
	return taskRecord
}

// safeProcess contains panics from the worker so one broken agent cannot
// abort the whole run.
func safeProcess(ctx context.Context, worker Worker, sessionID, description string) (output string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent panicked: %v", r)
		}
	}()
	return worker.Process(ctx, sessionID, description)
}

var artifactPattern = regexp.MustCompile(`\b[\w./-]+\.(?:v|sv|vh|vcd|log)\b`)

// extractArtifacts pulls workspace-looking filenames out of an agent's final
// answer so lineage can link tasks to the files they mention.
func extractArtifacts(output string) []string {
	matches := artifactPattern.FindAllString(output, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	var artifacts []string
	for _, m := range matches {
		if !seen[m] {
			seen[m] = true
			artifacts = append(artifacts, m)
		}
	}
	return artifacts
}
