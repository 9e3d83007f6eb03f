// Copyright 2025 The AgentLLM Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package runtime

import (
	"context"
	"iter"
	"strings"
	"sync"
)

// ScriptedAgent replays a fixed event script. Tests use it to exercise
// the layers above the runtime without a live model.
type ScriptedAgent struct {
	// Script is the event sequence RunStream yields, in order. A nil
	// Err on an entry yields the event; a non-nil Err yields the error.
	Script []ScriptedEvent

	// Params records what the agent was built with, for assertions.
	Params Params

	mu       sync.Mutex
	messages []string
}

// ScriptedEvent is one scripted step.
type ScriptedEvent struct {
	Event *Event
	Err   error
}

// Messages returns the messages sent to the agent so far.
func (a *ScriptedAgent) Messages() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.messages...)
}

func (a *ScriptedAgent) record(message string) {
	a.mu.Lock()
	a.messages = append(a.messages, message)
	a.mu.Unlock()
}

func (a *ScriptedAgent) Run(_ context.Context, message string) (*Response, error) {
	a.record(message)

	resp := &Response{}
	var text strings.Builder
	for _, step := range a.Script {
		if step.Err != nil {
			return nil, step.Err
		}
		switch step.Event.Kind {
		case EventContent:
			text.WriteString(step.Event.Text)
		case EventToolCallCompleted:
			resp.ToolCalls = append(resp.ToolCalls, *step.Event.ToolCall)
		case EventCompleted:
			if step.Event.Usage != nil {
				resp.Usage = *step.Event.Usage
			}
		}
	}
	resp.Text = text.String()
	return resp, nil
}

func (a *ScriptedAgent) RunStream(_ context.Context, message string) iter.Seq2[*Event, error] {
	a.record(message)

	return func(yield func(*Event, error) bool) {
		for _, step := range a.Script {
			if !yield(step.Event, step.Err) {
				return
			}
			if step.Err != nil {
				return
			}
		}
	}
}

// TextScript builds a script that streams the given text as one content
// event followed by a completion event.
func TextScript(text string) []ScriptedEvent {
	return []ScriptedEvent{
		{Event: &Event{Kind: EventContent, Text: text}},
		{Event: &Event{Kind: EventCompleted}},
	}
}

// ScriptedBuilder returns a Builder that hands out the given agent and
// records the params it was built with.
func ScriptedBuilder(agent *ScriptedAgent) Builder {
	return func(_ context.Context, params Params) (Agent, error) {
		agent.Params = params
		return agent, nil
	}
}
