package scoring

import (
	"encoding/json"
	"fmt"
	"strings"

	"callflow/internal/platform/models"
)

const (
	participantWeight = 0.3
	titleWeight       = 0.1
	topicWeight       = 0.2
	brandBonus        = 0.2
)

type recordedPayload struct {
	Title   string `json:"title"`
	Parties []struct {
		Name        string `json:"name"`
		CompanyName string `json:"company_name"`
	} `json:"parties"`
}

// analyzeRecorded scores a freshly recorded call on participant companies
// and the call title: 0.3 per participant from an apartment-industry
// company, 0.1 per title keyword, capped at 1.0.
func (e *Engine) analyzeRecorded(event *models.WebhookEvent) (*models.ProcessingResult, error) {
	var p recordedPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		return nil, fmt.Errorf("call.recorded payload: %w", err)
	}

	result := &models.ProcessingResult{Metrics: map[string]float64{}}

	companyMatches := 0
	for _, party := range p.Parties {
		company := strings.ToLower(party.CompanyName)
		if company == "" {
			continue
		}
		if containsAny(company, e.keywords) {
			companyMatches++
			result.RelevanceScore += participantWeight
			result.Insights = append(result.Insights,
				fmt.Sprintf("Participant from apartment industry company: %s", party.CompanyName))
		}
	}

	titleMatches := 0
	title := strings.ToLower(p.Title)
	if title != "" {
		for _, kw := range e.keywords {
			if strings.Contains(title, strings.ToLower(kw)) {
				titleMatches++
				result.RelevanceScore += titleWeight
			}
		}
		if titleMatches > 0 {
			result.Insights = append(result.Insights,
				fmt.Sprintf("Call title references the apartment industry: %q", p.Title))
		}
	}

	result.Metrics["participant_count"] = float64(len(p.Parties))
	result.Metrics["company_matches"] = float64(companyMatches)
	result.Metrics["title_matches"] = float64(titleMatches)

	return result, nil
}

type transcribedPayload struct {
	Transcript struct {
		Text string `json:"text"`
	} `json:"transcript"`
}

// analyzeTranscribed scores keyword density over the transcript text:
// min(keyword_count / (word_count / 100), 1.0), plus a brand-term bonus.
// High scores additionally emit the follow-up action items.
func (e *Engine) analyzeTranscribed(event *models.WebhookEvent) (*models.ProcessingResult, error) {
	var p transcribedPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		return nil, fmt.Errorf("call.transcribed payload: %w", err)
	}

	result := &models.ProcessingResult{Metrics: map[string]float64{}}

	text := strings.ToLower(p.Transcript.Text)
	wordCount := len(strings.Fields(text))
	if wordCount == 0 {
		result.Metrics["word_count"] = 0
		result.Metrics["keyword_count"] = 0
		return result, nil
	}

	keywordCount := 0
	for _, kw := range e.keywords {
		keywordCount += strings.Count(text, strings.ToLower(kw))
	}

	density := float64(keywordCount) / (float64(wordCount) / 100.0)
	score := density
	if score > 1.0 {
		score = 1.0
	}

	if keywordCount > 0 {
		result.Insights = append(result.Insights,
			fmt.Sprintf("%d apartment-industry keyword mentions in transcript", keywordCount))
	}

	if strings.Contains(text, e.brandTerm) {
		score += brandBonus
		result.Insights = append(result.Insights, "Pay Ready mentioned by name")
	}

	for _, competitor := range e.competitors {
		if strings.Contains(text, strings.ToLower(competitor)) {
			result.Insights = append(result.Insights,
				fmt.Sprintf("Competitor mentioned: %s", competitor))
			result.Metrics["competitor_mentions"]++
		}
	}

	if score > actionItemThreshold {
		result.ActionItems = append(result.ActionItems,
			"Prioritize follow-up with this prospect",
			"Extract pain points from transcript",
			"Identify decision makers on the call",
			"Prepare customized proposal",
		)
	}

	result.RelevanceScore = score
	result.Metrics["word_count"] = float64(wordCount)
	result.Metrics["keyword_count"] = float64(keywordCount)

	return result, nil
}

type analyzedPayload struct {
	Topics         []string `json:"topics"`
	SentimentScore *float64 `json:"sentiment_score"`
}

// analyzeAnalyzed consumes upstream topic and sentiment analysis: 0.2 per
// apartment-relevant topic, then sentiment-driven insights and actions.
func (e *Engine) analyzeAnalyzed(event *models.WebhookEvent) (*models.ProcessingResult, error) {
	var p analyzedPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		return nil, fmt.Errorf("call.analyzed payload: %w", err)
	}

	result := &models.ProcessingResult{Metrics: map[string]float64{}}

	topicMatches := 0
	for _, topic := range p.Topics {
		if containsAny(strings.ToLower(topic), e.keywords) {
			topicMatches++
			result.RelevanceScore += topicWeight
			result.Insights = append(result.Insights,
				fmt.Sprintf("Relevant topic discussed: %s", topic))
		}
	}

	if p.SentimentScore != nil {
		sentiment := *p.SentimentScore
		result.Metrics["sentiment_score"] = sentiment
		switch {
		case sentiment > 0.6:
			result.Insights = append(result.Insights, "Positive sentiment detected")
			result.ActionItems = append(result.ActionItems, "Schedule follow-up while momentum is high")
		case sentiment < 0.4:
			result.Insights = append(result.Insights, "Negative sentiment detected")
			result.ActionItems = append(result.ActionItems, "Address concerns raised on the call")
		}
	}

	result.Metrics["topic_count"] = float64(len(p.Topics))
	result.Metrics["topic_matches"] = float64(topicMatches)

	return result, nil
}

type sharedPayload struct {
	SharedWith []string `json:"shared_with"`
}

// analyzeShared never marks the event relevant; share activity is
// informational only.
func (e *Engine) analyzeShared(event *models.WebhookEvent) (*models.ProcessingResult, error) {
	var p sharedPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		return nil, fmt.Errorf("call.shared payload: %w", err)
	}

	result := &models.ProcessingResult{}
	if n := len(p.SharedWith); n > 0 {
		result.Insights = append(result.Insights, fmt.Sprintf("Call shared with %d recipients", n))
	} else {
		result.Insights = append(result.Insights, "Call shared")
	}
	return result, nil
}

type userCreatedPayload struct {
	User struct {
		Email string `json:"email"`
	} `json:"user"`
	Email string `json:"email"`
}

// analyzeUserCreated is informational only, like analyzeShared.
func (e *Engine) analyzeUserCreated(event *models.WebhookEvent) (*models.ProcessingResult, error) {
	var p userCreatedPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		return nil, fmt.Errorf("user.created payload: %w", err)
	}

	email := p.User.Email
	if email == "" {
		email = p.Email
	}

	result := &models.ProcessingResult{}
	if email != "" {
		result.Insights = append(result.Insights, fmt.Sprintf("New user joined workspace: %s", email))
	} else {
		result.Insights = append(result.Insights, "New user joined workspace")
	}
	return result, nil
}
