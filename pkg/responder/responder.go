// Package responder produces the reply for one classified message.
//
// There is a single Responder type. What differs between intents (system prompt,
// temperature, whether study data is fetched) lives in a Profile.
package responder

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/google/jsonschema-go/jsonschema"

	"grindhub/pkg/agent/llm"
	"grindhub/pkg/completion"
	"grindhub/pkg/dataapi"
	"grindhub/pkg/logx"
)

// maxPayloadChars bounds how much fetched data is pasted into a prompt.
const maxPayloadChars = 12000

// DataSource is the study data service as seen by a responder.
type DataSource interface {
	Fetch(ctx context.Context, endpoint dataapi.Endpoint, q dataapi.Query) dataapi.Result
	FetchUser(ctx context.Context, userID string) (string, error)
}

// Extraction holds the details pulled from a message. Nil means not mentioned.
type Extraction struct {
	TimeRange      *string `json:"time_range,omitempty" jsonschema:"Time range the user refers to, e.g. today, this week, last month"`
	ModuleClass    *string `json:"class,omitempty" jsonschema:"Module or class related to the user input, e.g. math, CS2040"`
	AssignmentType *string `json:"assignment_type,omitempty" jsonschema:"Assignment type and details, e.g. essay, project, exam, quiz"`
}

// Query builds the data API request for userID.
func (e Extraction) Query(userID string) dataapi.Query {
	return dataapi.Query{
		UserID:         userID,
		TimeRange:      e.TimeRange,
		Class:          e.ModuleClass,
		AssignmentType: e.AssignmentType,
	}
}

// Responder answers one message according to its profile. Responders are built per turn.
type Responder struct {
	profile     Profile
	completions *completion.Client
	data        DataSource
	userID      string
	logger      *logx.Logger
}

// New creates a responder. userID is ignored unless the profile needs it; data may be
// nil, in which case every fetch is reported as unavailable.
func New(p Profile, c *completion.Client, data DataSource, userID string) *Responder {
	if !p.NeedsUser {
		userID = ""
	}
	return &Responder{
		profile:     p,
		completions: c,
		data:        data,
		userID:      userID,
		logger:      logx.NewLogger("responder").With("profile", p.Name),
	}
}

// Profile returns the responder's profile.
func (r *Responder) Profile() Profile {
	return r.profile
}

// Reply produces the answer to message. The only error it returns is an exhausted
// reply completion (or caller cancellation).
func (r *Responder) Reply(ctx context.Context, message, runningContext string) (string, error) {
	var data *dataapi.Result
	if r.profile.UsesExternalData {
		ext := r.Extract(ctx, message)
		res := r.fetch(ctx, ext)
		data = &res
	}

	var name string
	if r.profile.GreetByName {
		name = r.userName(ctx)
	}

	prompt := r.Compose(message, runningContext, data, name)
	reply, err := r.completions.Text(ctx, prompt, completion.Options{
		System:      r.profile.SystemPrompt,
		Temperature: r.profile.Temperature,
		Label:       llm.LabelReply,
	})
	if err != nil {
		return "", fmt.Errorf("%s reply: %w", r.profile.Name, err)
	}
	return reply, nil
}

// Extract pulls the profile's fields out of message. Any failure yields an empty
// Extraction.
func (r *Responder) Extract(ctx context.Context, message string) Extraction {
	if len(r.profile.ExtractFields) == 0 {
		return Extraction{}
	}
	schema, err := extractionSchema(r.profile.ExtractFields)
	if err != nil {
		r.logger.WithContext(ctx).Warn("extraction schema: %v", err)
		return Extraction{}
	}

	ext, err := completion.StructuredWith[Extraction](ctx, r.completions, schema, extractionPrompt(r.profile.ExtractFields, message), completion.Options{
		Temperature: llm.TemperatureFactual,
		Label:       llm.LabelExtract,
	})
	if err != nil {
		r.logger.WithContext(ctx).Warn("extraction failed, querying without filters: %v", err)
		return Extraction{}
	}
	return ext.only(r.profile.ExtractFields)
}

// only clears fields outside fields and blank values.
func (e Extraction) only(fields []Field) Extraction {
	keep := func(f Field, v *string) *string {
		if v == nil || !slices.Contains(fields, f) {
			return nil
		}
		s := strings.TrimSpace(*v)
		if s == "" || strings.EqualFold(s, "null") {
			return nil
		}
		return &s
	}
	return Extraction{
		TimeRange:      keep(FieldTimeRange, e.TimeRange),
		ModuleClass:    keep(FieldClass, e.ModuleClass),
		AssignmentType: keep(FieldAssignmentType, e.AssignmentType),
	}
}

func extractionSchema(fields []Field) (*completion.Schema, error) {
	return completion.SchemaFor[Extraction](func(s *jsonschema.Schema) {
		for name := range s.Properties {
			if !slices.Contains(fields, Field(name)) {
				delete(s.Properties, name)
			}
		}
		s.Required = nil
	})
}

func extractionPrompt(fields []Field, message string) string {
	var b strings.Builder
	b.WriteString("Extract the following details from the user message. Omit a detail or use null when the message does not mention it.\n")
	for _, f := range fields {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	fmt.Fprintf(&b, "\nUser Message: %s\n", message)
	return b.String()
}

func (r *Responder) fetch(ctx context.Context, ext Extraction) dataapi.Result {
	if r.data == nil {
		return dataapi.Unavailable("data service not configured")
	}
	if r.userID == "" {
		return dataapi.Unavailable("no user id for this conversation")
	}
	res := r.data.Fetch(ctx, r.profile.Endpoint, ext.Query(r.userID))
	if !res.Available() {
		r.logger.WithContext(ctx).Warn("%s data unavailable: %s", r.profile.Endpoint, res.Message)
	}
	return res
}

func (r *Responder) userName(ctx context.Context) string {
	if r.data == nil || r.userID == "" {
		return ""
	}
	name, err := r.data.FetchUser(ctx, r.userID)
	if err != nil {
		logx.Debug(ctx, "responder", "username lookup failed: %v", err)
		return ""
	}
	return name
}

// Compose builds the user prompt. data is nil for profiles that do not fetch.
func (r *Responder) Compose(message, runningContext string, data *dataapi.Result, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User: %s\n", message)
	if name != "" {
		fmt.Fprintf(&b, "The user's name is %s.\n", name)
	}
	if r.profile.IncludeContext && strings.TrimSpace(runningContext) != "" {
		fmt.Fprintf(&b, "Context: %s\n", runningContext)
	}
	if data != nil {
		b.WriteString(dataSection(*data))
	}
	b.WriteString(r.profile.Instruction)
	b.WriteString("\n")
	return b.String()
}

func dataSection(res dataapi.Result) string {
	if !res.Available() {
		reason := res.Message
		if reason == "" {
			reason = "no reason given"
		}
		return "Study data: unavailable (" + reason + ").\n" +
			"The user's records could not be retrieved. Do not invent scores, deadlines, or other figures. " +
			"Tell the user their data could not be retrieved right now and keep any advice general.\n"
	}
	payload := string(res.Payload)
	if len(payload) > maxPayloadChars {
		cut := maxPayloadChars
		for cut > 0 && !utf8.RuneStart(payload[cut]) {
			cut--
		}
		payload = payload[:cut] + "...(truncated)"
	}
	return "Study data from the app's database (JSON):\n" + payload + "\n" +
		"Base every figure in your answer on this data only.\n"
}
