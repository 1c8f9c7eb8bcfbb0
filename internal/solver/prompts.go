package solver

import (
	"fmt"
	"strings"
)

const palSystemPrompt = `You write Python programs that solve math word problems.

Rules:
1. Reply with executable Python only.
2. No markdown fences.
3. Built-in Python only, no imports.
4. Store the final numeric result in a variable named answer.
5. Give intermediate quantities descriptive names.

Example:
distance_ab = 100
distance_bc = distance_ab + 50
distance_cd = distance_bc * 2
answer = distance_ab + distance_bc + distance_cd`

const cotSystemPrompt = `You solve math problems by reasoning step by step.

Always finish with a final line in exactly this form:
#### [final_answer]

where [final_answer] is only the number or short text answer.

Example:
Problem: John has 5 apples and buys 3 more. How many does he have?

Solution:
Apples at the start: 5
Apples bought: 3
Total = 5 + 3 = 8

#### 8`

// promptFewShots is how many retrieved examples are placed in a prompt.
const promptFewShots = 2

func fewShotBlock(fewShots []string) string {
	if len(fewShots) > promptFewShots {
		fewShots = fewShots[:promptFewShots]
	}
	return strings.Join(fewShots, "\n\n")
}

func palPrompt(question string, fewShots []string) string {
	return fmt.Sprintf("%s\n\nProblem: %s\n\nWrite Python code that solves this step by step. Reply with the code only.",
		fewShotBlock(fewShots), question)
}

func cotPrompt(question string, fewShots []string) string {
	return fmt.Sprintf("%s\n\nProblem: %s\n\nSolve this step by step and show your work. End with: #### [answer]",
		fewShotBlock(fewShots), question)
}
