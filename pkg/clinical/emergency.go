package clinical

// StandardDisclaimer is the closing line every model-produced report must carry.
const StandardDisclaimer = "Disclaimer: This is an AI assessment. Seek human physician validation immediately if symptoms worsen."

// LegalNotice is appended to every rendered disclaimer.
const LegalNotice = "This is an AI-assisted triage report and does not substitute a licensed human physical examination."

// EmergencyConditionName identifies a locally synthesized emergency report.
const EmergencyConditionName = "IMMEDIATE LIFE THREAT ASSESSMENT"

// EmergencyDiagnosis returns the fixed maximum-severity report used by the
// emergency bypass. It is built locally and never involves the model.
func EmergencyDiagnosis() *Diagnosis {
	return &Diagnosis{
		ConditionName:   EmergencyConditionName,
		ConfidenceScore: 1.0,
		TriageLevel:     TriageEmergency,
		ClinicalReasoning: []string{
			"Patient triggered red-line emergency protocol.",
			"High-risk symptoms detected via bypass.",
		},
		SuggestedActions: []string{
			"Call 112 / 999 immediately.",
			"Do not wait for further AI analysis.",
			"Locate nearest trauma center.",
		},
		EducationalSummary: "HAKIM emergency protocol activated due to severity.",
		Disclaimer:         "EMERGENCY: Seek human physician immediately.",
	}
}
