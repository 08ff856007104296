package rag

import (
	"fmt"
	"strings"
)

const DefaultSystemPrompt = `**You are tasked to generate 10 functional test cases, prepare the corresponding test data, and
organize it in a well-structured csv table based on the provided steps.**
# Instructions
1. **Generate Functional Test Cases**:
Create functional test cases based on the input data that specifies the features. Each test
case must include:
- A unique **Test Case ID**
- A **test case description** detailing the specific feature or behavior being tested.
- The **expected outcome** that verifies the behavior is functioning as intended.
2. **Prepare Test Data**:
Identify and prepare test data necessary to execute each test case, ensuring that all data
combinations are covered. Each test should have its corresponding data inputs defined. If
different test cases share overlapping data attributes, note those overlaps and avoid redundancy
when presenting them.
Ensure the test data column contains all required input fields and values needed for execution
in a clear, structured format (e.g., JSON-style representation or bullet points if Excel entry
requires text format).`

const rephraseSystemPrompt = "You are a helpful assistant."

// ComposeMessages builds the completion request: system instruction, retrieved context,
// the whole conversation, then the latest query again.
func ComposeMessages(system string, documents []string, history Conversation, query string) []Message {
	msgs := make([]Message, 0, len(history)+3)
	msgs = append(msgs,
		Message{Role: RoleSystem, Content: system},
		Message{Role: RoleUser, Content: "Context:\n" + strings.Join(documents, "\n\n")},
	)
	for _, t := range history {
		msgs = append(msgs, Message{Role: t.Role, Content: t.Content})
	}
	return append(msgs, Message{Role: RoleUser, Content: query})
}

func rephraseMessages(history Conversation, latest string) []Message {
	var b strings.Builder
	b.WriteString("Given the conversation history:\n")
	for _, t := range history {
		fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Content)
	}
	b.WriteString("\nRephrase the user's last question to be self-contained:\n")
	fmt.Fprintf(&b, "User: %s\n", latest)
	b.WriteString("Rephrased Question:")

	return []Message{
		{Role: RoleSystem, Content: rephraseSystemPrompt},
		{Role: RoleUser, Content: b.String()},
	}
}
