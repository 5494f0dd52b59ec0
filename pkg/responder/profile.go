package responder

import (
	"grindhub/pkg/agent/llm"
	"grindhub/pkg/dataapi"
	"grindhub/pkg/intent"
)

// Field is one detail the extraction step may pull out of a message.
type Field string

// Extractable fields, named as they appear in data API payloads.
const (
	FieldTimeRange      Field = "time_range"
	FieldClass          Field = "class"
	FieldAssignmentType Field = "assignment_type"
)

// Profile is the data that distinguishes one responder from another.
//
//nolint:govet // grouped for readability
type Profile struct {
	Name         string
	Intent       intent.Intent
	SystemPrompt string
	// Instruction closes the user prompt and names the task.
	Instruction string
	Temperature float32

	// NeedsUser profiles are handed the caller's user ID.
	NeedsUser bool
	// UsesExternalData profiles extract ExtractFields and fetch Endpoint before replying.
	UsesExternalData bool
	ExtractFields    []Field
	Endpoint         dataapi.Endpoint
	// GreetByName profiles look up the username and address the user with it.
	GreetByName bool

	// IncludeContext adds the running context to the prompt when it is non-empty.
	IncludeContext bool
}

const mobileNote = "Your response should also be easily readable from a mobile device, so keep it concise and to the point."

const generalSystem = `You are a highly knowledgeable and helpful AI assistant.
Your primary role is to provide factual, accurate, and concise general information on a wide variety of topics.
Answer questions directly and clearly. If a question is outside your knowledge base, or requires real-time, highly personal, or subjective opinions, please politely state that you cannot provide that specific information.
Your responses should be easily readable from a mobile device, so keep them concise and to the point.`

const greetingSystem = `You are a friendly and polite AI assistant specialized in handling greetings and farewells.
Your task is to respond appropriately and courteously to user messages that are clearly a greeting or a farewell.
- If the user's message is a greeting (e.g., "hello", "hi", "good morning", "good afternoon", "good evening", "how are you"), respond with a warm and friendly greeting back.
- If the user's message is a farewell (e.g., "goodbye", "bye", "see you", "farewell", "talk to you later"), respond with a polite and friendly farewell.
- Acknowledge the current time of day (morning, afternoon, evening) if the greeting implies it.
- Keep your responses brief, positive, and natural.
- ` + mobileNote

const motivationSystem = `You are an AI assistant that provides motivation and stress support to users.
Users are most likely stressed due to academic pressures, personal issues, or general life challenges.
You should respond with empathetic and supportive messages that help alleviate stress and provide motivation.
Your responses should be encouraging and uplifting, focusing on positive reinforcement and practical advice.
` + mobileNote

const performanceSystem = `You are an AI assistant that provides user's study statistics, assignment scores, and class performance data from the app's database.
You should generally calculate and summarize user performance metrics based on user input.
` + mobileNote

const studyPlanSystem = `You are an AI assistant that helps to manage user's assignments, classes, study logs, study plan, and preferences.
You can analyze deadlines, user's past performance, and suggest a prioritized list of tasks for the day/week based on user input.
` + mobileNote

const othersSystem = `You are GrindHub's study assistant. The user's message did not fit any of your specialist topics.
Reply helpfully and briefly. If the request is unrelated to studying, answer if you reasonably can, then mention that you can help with study plans, assignment and performance questions, motivation, and general knowledge.
` + mobileNote

// Profiles returns the six responder profiles in taxonomy order.
func Profiles() []Profile {
	return []Profile{
		{
			Name:           "general_information",
			Intent:         intent.GeneralInformation,
			SystemPrompt:   generalSystem,
			Instruction:    "Please provide a general information response to the user's query.",
			Temperature:    llm.TemperatureFactual,
			IncludeContext: true,
		},
		{
			Name:         "greeting_farewell",
			Intent:       intent.GreetingFarewell,
			SystemPrompt: greetingSystem,
			Instruction:  "Please provide an appropriate greeting or farewell response to the user's message.",
			Temperature:  llm.TemperatureConversational,
		},
		{
			Name:             "motivation_stress_support",
			Intent:           intent.MotivationStressSupport,
			SystemPrompt:     motivationSystem,
			Instruction:      "Please provide a motivational and supportive response to the user's message.",
			Temperature:      llm.TemperatureFactual,
			NeedsUser:        true,
			UsesExternalData: true,
			ExtractFields:    []Field{FieldTimeRange, FieldClass},
			Endpoint:         dataapi.EndpointPerformance,
			IncludeContext:   true,
		},
		{
			Name:             "performance_assignment_query",
			Intent:           intent.PerformanceAssignmentQuery,
			SystemPrompt:     performanceSystem,
			Instruction:      "Please provide a summary of the user's performance metrics based on the provided message and context.",
			Temperature:      llm.TemperatureFactual,
			NeedsUser:        true,
			UsesExternalData: true,
			ExtractFields:    []Field{FieldTimeRange, FieldClass, FieldAssignmentType},
			Endpoint:         dataapi.EndpointPerformance,
			IncludeContext:   true,
		},
		{
			Name:             "study_plan_request",
			Intent:           intent.StudyPlanRequest,
			SystemPrompt:     studyPlanSystem,
			Instruction:      "Please provide a detailed study plan based on the user's message and context.",
			Temperature:      llm.TemperatureFactual,
			NeedsUser:        true,
			UsesExternalData: true,
			ExtractFields:    []Field{FieldTimeRange},
			Endpoint:         dataapi.EndpointStudyPlan,
			IncludeContext:   true,
		},
		{
			Name:           "others",
			Intent:         intent.Other,
			SystemPrompt:   othersSystem,
			Instruction:    "Please respond to the user's message.",
			Temperature:    0.5,
			NeedsUser:      true,
			GreetByName:    true,
			IncludeContext: true,
		},
	}
}
