package ocr

import (
	"context"
	"strings"

	"github.com/kirillkom/denial-appeal-assistant/internal/core/domain"
)

// MockExtractor returns canned OCR output picked by filename keywords. It is
// used for local runs without an OCR service (USE_MOCK_OCR).
type MockExtractor struct{}

func NewMockExtractor() *MockExtractor {
	return &MockExtractor{}
}

func (MockExtractor) Extract(_ context.Context, doc *domain.Document) (string, error) {
	return MockText(doc.Filename), nil
}

type mockFixture struct {
	keywords []string
	text     string
}

// Order matters: the first fixture with a matching keyword wins.
var mockFixtures = []mockFixture{
	{keywords: []string{"denial", "eob"}, text: mockDenialLetter},
	{keywords: []string{"bill", "invoice"}, text: mockMedicalBill},
	{keywords: []string{"doctor", "note", "consultation"}, text: mockDoctorNote},
	{keywords: []string{"insurance", "card"}, text: mockInsuranceCard},
	{keywords: []string{"auth", "approval", "preauth"}, text: mockPreAuthorization},
}

// MockText picks the fixture for filename, defaulting to the medical bill.
func MockText(filename string) string {
	name := strings.ToLower(filename)
	for _, fixture := range mockFixtures {
		for _, keyword := range fixture.keywords {
			if strings.Contains(name, keyword) {
				return fixture.text
			}
		}
	}
	return mockMedicalBill
}

const mockMedicalBill = `Medical Bill
Patient Name: Emily Davis
Provider: Valley Care Clinic
Date of Service: 2024-08-31
Procedure: CT Abdomen
CPT Code: 74160
Amount Charged: $1775
Billing ID: BL-314225
Patient Insurance: BlueCross PPO
Member ID: BCB123456789`

const mockDoctorNote = `VALLEY CARE CLINIC
Medical Consultation Note

Patient Name: Emily Davis
Date: 2024-08-31
Chief Complaint: Severe abdominal pain

Assessment:
Patient presents with acute abdominal pain in lower right quadrant.
Clinical examination suggests possible appendicitis or ovarian cyst.
Pain severity: 8/10, worsening over past 24 hours.

Medical Necessity:
CT Abdomen with contrast (CPT 74160) is medically necessary to:
- Rule out acute appendicitis
- Evaluate for ovarian pathology
- Assess for other acute intra-abdominal processes

Plan:
Order CT abdomen immediately
Follow-up after imaging results

Physician: Dr. Sarah Johnson, MD
License: CA-12345
Date: 2024-08-31`

const mockInsuranceCard = `BLUECROSS BLUESHIELD PPO
Insurance Card

Member Name: EMILY DAVIS
Member ID: BCB123456789
Group Number: GRP-5544
Plan: PPO Plus
Effective Date: 01/01/2024

Coverage:
- In-Network: 80% coverage
- Out-of-Network: 60% coverage
- Deductible: $1000 (Individual)

Pre-Authorization Required for:
CT/MRI, Surgery, Hospitalization`

const mockPreAuthorization = `BLUECROSS BLUESHIELD
PRE-AUTHORIZATION APPROVAL

Patient: Emily Davis
Member ID: BCB123456789
Date: 2024-08-30
Authorization Number: AUTH-2024-88172

APPROVED PROCEDURE:
CT Abdomen with Contrast
CPT Code: 74160
Provider: Valley Care Clinic

Status: APPROVED
Authorized Date of Service: 2024-08-31
Valid Through: 2024-09-15`

const mockDenialLetter = `BLUECROSS BLUESHIELD
NOTICE OF CLAIM DENIAL

Patient Name: Emily Davis
Member ID: BCB123456789
Claim Number: CLM-2024-55120
Date of Service: 2024-08-31
Procedure: CT Abdomen with Contrast (CPT 74160)

Your claim has been denied.
Denial Code: CO-50
Reason: The requested procedure is not medically necessary according to
clinical guidelines. Conservative treatment should be attempted first.

You may appeal this decision within 60 days from the date of this letter.`
