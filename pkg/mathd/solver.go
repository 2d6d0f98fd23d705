package mathd

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/stepwisehq/stepwise/pkg/chat"
)

// ErrCannotSolve marks a question outside what a solver handles, letting the
// caller fall back to knowledge base content or generic steps.
var ErrCannotSolve = errors.New("cannot solve this question")

// Step is one line of a worked solution on the wire.
type Step struct {
	Step int    `json:"step"`
	Text string `json:"text"`
	Type string `json:"type,omitempty"`
}

// Solution is the payload of the terminal solution_complete event.
type Solution struct {
	Steps                  []Step   `json:"steps"`
	FinalAnswer            string   `json:"final_answer"`
	Confidence             float64  `json:"confidence"`
	Route                  string   `json:"route"`
	ConversationalResponse string   `json:"conversational_response"`
	FollowUpSuggestions    []string `json:"follow_up_suggestions"`
	RequestType            string   `json:"request_type"`
	SessionID              string   `json:"session_id"`
	ContextAware           bool     `json:"context_aware"`
}

// Worked is a solver's raw output before the server wraps it into a
// Solution.
type Worked struct {
	Steps       []Step
	FinalAnswer string
}

// Solver produces worked steps and a final answer for a question. Solvers
// return ErrCannotSolve for questions outside their reach; any other error
// aborts the solve stream.
type Solver interface {
	Solve(ctx context.Context, question string) (*Worked, error)
}

// BuiltinSolver works linear equations of the form ax+b=c and plain
// arithmetic expressions without calling a model, so the dev server stays
// usable offline.
type BuiltinSolver struct{}

func (BuiltinSolver) Solve(_ context.Context, question string) (*Worked, error) {
	if worked := solveLinear(question); worked != nil {
		return worked, nil
	}
	if worked := solveArithmetic(question); worked != nil {
		return worked, nil
	}
	return nil, ErrCannotSolve
}

// linearPattern picks an ax+b=c equation out of surrounding prose. The
// coefficient and the constant term are both optional.
var linearPattern = regexp.MustCompile(`(-?\d*\.?\d*)\s*\*?\s*([a-zA-Z])\s*(?:([+-])\s*(\d+(?:\.\d+)?))?\s*=\s*(-?\d+(?:\.\d+)?)`)

func solveLinear(question string) *Worked {
	m := linearPattern.FindStringSubmatch(question)
	if m == nil {
		return nil
	}

	coeff, ok := parseCoefficient(m[1])
	if !ok || coeff == 0 {
		return nil
	}
	variable := strings.ToLower(m[2])

	var constant float64
	if m[4] != "" {
		constant, _ = strconv.ParseFloat(m[4], 64)
		if m[3] == "-" {
			constant = -constant
		}
	}

	rhs, err := strconv.ParseFloat(m[5], 64)
	if err != nil {
		return nil
	}

	solution := (rhs - constant) / coeff
	answer := fmt.Sprintf("%s = %s", variable, formatNumber(solution))

	lhs := formatTerm(coeff, variable)
	equation := fmt.Sprintf("%s = %s", lhs, formatNumber(rhs))
	if constant != 0 {
		sign := "+"
		if constant < 0 {
			sign = "-"
		}
		equation = fmt.Sprintf("%s %s %s = %s", lhs, sign, formatNumber(math.Abs(constant)), formatNumber(rhs))
	}

	steps := []Step{{Step: 1, Text: fmt.Sprintf("Start with the equation %s.", equation), Type: "setup"}}
	if constant != 0 {
		move := fmt.Sprintf("Subtract %s from both sides", formatNumber(constant))
		if constant < 0 {
			move = fmt.Sprintf("Add %s to both sides", formatNumber(-constant))
		}
		steps = append(steps, Step{
			Step: len(steps) + 1,
			Text: fmt.Sprintf("%s: %s = %s.", move, lhs, formatNumber(rhs-constant)),
			Type: "algebra",
		})
	}
	if coeff != 1 {
		steps = append(steps, Step{
			Step: len(steps) + 1,
			Text: fmt.Sprintf("Divide both sides by %s: %s.", formatNumber(coeff), answer),
			Type: "algebra",
		})
	}
	steps = append(steps, Step{
		Step: len(steps) + 1,
		Text: fmt.Sprintf("The solution is %s.", answer),
		Type: "result",
	})

	return &Worked{Steps: steps, FinalAnswer: answer}
}

func parseCoefficient(text string) (float64, bool) {
	switch text {
	case "", "+":
		return 1, true
	case "-":
		return -1, true
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// arithmeticPattern finds expression candidates like "2 + 3 * 4" or
// "(2 + 3) * 4" embedded in a question.
var arithmeticPattern = regexp.MustCompile(`[0-9(][0-9\s.+\-*/()]*[0-9)]`)

func solveArithmetic(question string) *Worked {
	// Anything with an equals sign is an equation, not an expression.
	if strings.Contains(question, "=") {
		return nil
	}

	for _, candidate := range arithmeticPattern.FindAllString(question, -1) {
		expr := strings.TrimSpace(candidate)
		if !strings.ContainsAny(expr, "+-*/") {
			continue
		}
		value, err := evalArithmetic(expr)
		if err != nil {
			continue
		}

		answer := formatNumber(value)
		steps := []Step{{Step: 1, Text: fmt.Sprintf("Evaluate %s using the standard order of operations.", expr), Type: "setup"}}
		if strings.ContainsAny(expr, "*/") && strings.ContainsAny(expr, "+-") {
			steps = append(steps, Step{
				Step: 2,
				Text: "Multiplication and division are evaluated before addition and subtraction.",
				Type: "explanation",
			})
		}
		steps = append(steps, Step{
			Step: len(steps) + 1,
			Text: fmt.Sprintf("%s = %s", expr, answer),
			Type: "result",
		})

		return &Worked{Steps: steps, FinalAnswer: answer}
	}
	return nil
}

// evalArithmetic evaluates + - * / with parentheses and unary minus over
// float64.
func evalArithmetic(expr string) (float64, error) {
	p := &exprParser{input: []rune(expr)}
	value, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if p.peek() != 0 {
		return 0, fmt.Errorf("unexpected %q in expression", p.peek())
	}
	return value, nil
}

type exprParser struct {
	input []rune
	pos   int
}

func (p *exprParser) peek() rune {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *exprParser) parseExpr() (float64, error) {
	value, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '+':
			p.pos++
			rhs, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			value += rhs
		case '-':
			p.pos++
			rhs, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			value -= rhs
		default:
			return value, nil
		}
	}
}

func (p *exprParser) parseTerm() (float64, error) {
	value, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '*':
			p.pos++
			rhs, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			value *= rhs
		case '/':
			p.pos++
			rhs, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			if rhs == 0 {
				return 0, errors.New("division by zero")
			}
			value /= rhs
		default:
			return value, nil
		}
	}
}

func (p *exprParser) parseFactor() (float64, error) {
	switch p.peek() {
	case '-':
		p.pos++
		value, err := p.parseFactor()
		return -value, err
	case '(':
		p.pos++
		value, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, errors.New("missing closing parenthesis")
		}
		p.pos++
		return value, nil
	}
	return p.parseNumber()
}

func (p *exprParser) parseNumber() (float64, error) {
	start := p.pos
	if p.peek() == 0 {
		return 0, errors.New("expected a number")
	}
	for p.pos < len(p.input) && (p.input[p.pos] >= '0' && p.input[p.pos] <= '9' || p.input[p.pos] == '.') {
		p.pos++
	}
	if p.pos == start {
		return 0, fmt.Errorf("expected a number at %q", p.input[start])
	}
	return strconv.ParseFloat(string(p.input[start:p.pos]), 64)
}

// formatNumber renders a value without trailing zeros, rounding away float
// noise first.
func formatNumber(v float64) string {
	v = math.Round(v*1e6) / 1e6
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatTerm(coeff float64, variable string) string {
	switch coeff {
	case 1:
		return variable
	case -1:
		return "-" + variable
	}
	return formatNumber(coeff) + variable
}

// defaultSteps stands in when a solver produced an answer shape without
// individual steps.
func defaultSteps() []Step {
	return []Step{
		{Step: 1, Text: "Analysis with conversation context", Type: "solution_step"},
		{Step: 2, Text: "Applied mathematical techniques", Type: "solution_step"},
		{Step: 3, Text: "Calculated systematically", Type: "solution_step"},
		{Step: 4, Text: "Complete result provided", Type: "solution_step"},
	}
}

func conversationalResponse(requestType, finalAnswer string) string {
	switch {
	case finalAnswer == "":
		return "I worked through your question step by step."
	case requestType == chat.RequestTypeTeaching:
		return fmt.Sprintf("Let's walk through it together. Step by step we arrive at %s.", finalAnswer)
	default:
		return fmt.Sprintf("I worked through your question step by step. The answer is %s.", finalAnswer)
	}
}

func followUpSuggestions(requestType string) []string {
	if requestType == chat.RequestTypeTeaching {
		return []string{
			"Would you like another example of the same idea?",
			"Try a similar problem and I will check your steps",
		}
	}
	return []string{
		"Would you like me to explain any step in more detail?",
		"Try a similar problem to check your understanding",
	}
}
