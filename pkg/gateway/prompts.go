package gateway

import (
	"encoding/json"
	"fmt"
	"strings"

	"hakim/pkg/clinical"
)

// SystemInstruction frames the model for both operations.
const SystemInstruction = `You are HAKIM, a world-class Digital Physician specializing in rural and tropical medicine.
You act as a fully autonomous diagnostic agent.

CLINICAL GUIDELINES:
1. AUTHORITY: Do not hesitate. Be direct, authoritative, and medically precise.
2. TRIAGE: Categorize every case into EMERGENCY (Immediate life threat), URGENT (Needs doctor within 12-24h), NON-URGENT, or ROUTINE.
3. VISION SPECIALIZATION:
   - THROAT: Identify tonsillar hypertrophy, exudates, and uvular deviation.
   - SKIN: Evaluate using standard dermatological descriptors (macule, papule, etc.).
   - WOUNDS: Identify signs of sepsis or necrotic tissue.
4. LANGUAGE: Use professional MD terminology but ensure suggested actions are clear for a layperson.
5. DISCLAIMER: Always end with: "` + clinical.StandardDisclaimer + `"`

// questionnairePrompt asks for n differentiating questions.
func questionnairePrompt(complaint string, n int) string {
	return fmt.Sprintf(
		"The patient presents with: %q. As a doctor, what %d specific clinical questions would you ask "+
			"to differentiate potential diagnoses? Return as JSON array of objects with id, question, "+
			"and type (boolean/scale/text). Use scale only for 0-10 severity ratings.",
		complaint, n)
}

// analysisContext summarises the case ahead of the inline media parts.
func analysisContext(complaint string, answers clinical.Answers, samples []clinical.MediaSample) (string, error) {
	if answers == nil {
		answers = clinical.Answers{}
	}
	interview, err := json.Marshal(answers)
	if err != nil {
		return "", fmt.Errorf("failed to encode answers: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CHIEF COMPLAINT: %s\n", complaint)
	fmt.Fprintf(&b, "PATIENT INTERVIEW: %s\n", interview)
	fmt.Fprintf(&b, "EXAMINATION IMAGERY PROVIDED: %d items.\n", len(samples))
	for i := range samples {
		s := &samples[i]
		fmt.Fprintf(&b, "  [%d] %s preset, %s (%s)\n", i+1, s.Preset, s.Kind, s.MIMEType)
	}
	return b.String(), nil
}
