package core

import "time"

const (
	MualimName          = "Mualim"
	MualimUserAgent     = "Mualim-Tutor/0.1"
	MualimRepositoryURL = "https://github.com/sandevgo/mualim"
	MualimVersion       = "0.1.0"
)

const (
	RoleUser      = "user"
	RoleAssistant = "model"
)

// Subject codes follow the Egyptian secondary curriculum. The Arabic
// label is what students see and what curated entries are keyed by.
type Subject string

const (
	SubjectArabic     Subject = "arabic"
	SubjectEnglish    Subject = "english"
	SubjectFrench     Subject = "french"
	SubjectGerman     Subject = "german"
	SubjectSciences   Subject = "sciences"
	SubjectPhysics    Subject = "physics"
	SubjectChemistry  Subject = "chemistry"
	SubjectBiology    Subject = "biology"
	SubjectMath       Subject = "math"
	SubjectHistory    Subject = "history"
	SubjectGeography  Subject = "geography"
	SubjectPhilosophy Subject = "philosophy"
	SubjectPsychology Subject = "psychology"
	SubjectGeology    Subject = "geology"
	SubjectReligion   Subject = "religion"
	SubjectCivics     Subject = "civics"
)

var subjectLabels = map[Subject]string{
	SubjectArabic:     "اللغة العربية",
	SubjectEnglish:    "اللغة الإنجليزية",
	SubjectFrench:     "اللغة الفرنسية",
	SubjectGerman:     "اللغة الألمانية",
	SubjectSciences:   "العلوم المتكاملة",
	SubjectPhysics:    "الفيزياء",
	SubjectChemistry:  "الكيمياء",
	SubjectBiology:    "الأحياء",
	SubjectMath:       "الرياضيات",
	SubjectHistory:    "التاريخ",
	SubjectGeography:  "الجغرافيا",
	SubjectPhilosophy: "الفلسفة والمنطق",
	SubjectPsychology: "علم النفس والاجتماع",
	SubjectGeology:    "الجيولوجيا",
	SubjectReligion:   "التربية الدينية",
	SubjectCivics:     "التربية الوطنية",
}

func (s Subject) Label() string {
	if l, ok := subjectLabels[s]; ok {
		return l
	}
	return string(s)
}

func Subjects() []Subject {
	return []Subject{
		SubjectArabic, SubjectEnglish, SubjectFrench, SubjectGerman,
		SubjectSciences, SubjectPhysics, SubjectChemistry, SubjectBiology,
		SubjectMath, SubjectHistory, SubjectGeography, SubjectPhilosophy,
		SubjectPsychology, SubjectGeology, SubjectReligion, SubjectCivics,
	}
}

type Grade string

const (
	Grade10 Grade = "grade_10"
	Grade11 Grade = "grade_11"
	Grade12 Grade = "grade_12"
)

var gradeLabels = map[Grade]string{
	Grade10: "الصف الأول الثانوي",
	Grade11: "الصف الثاني الثانوي",
	Grade12: "الصف الثالث الثانوي",
}

func (g Grade) Label() string {
	if l, ok := gradeLabels[g]; ok {
		return l
	}
	return string(g)
}

func Grades() []Grade {
	return []Grade{Grade10, Grade11, Grade12}
}

// Turn is one entry of the conversation window passed to the provider.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Attachment carries an inline file (usually a photographed exercise).
// Data is base64-encoded.
type Attachment struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
	Name     string `json:"name,omitempty"`
}

// KnowledgeEntry is one curated curriculum answer, loaded at startup
// and immutable for the process lifetime.
type KnowledgeEntry struct {
	Topic    string  `json:"topic"`
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Subject  Subject `json:"subject,omitempty"`
	Grade    Grade   `json:"grade,omitempty"`
}

// CacheRecord is one crowd-cached answer. Unique per normalized
// (question, subject, grade). AskedBy only grows when a new requester
// asks; re-asks by a known requester do not bump TimesAsked.
type CacheRecord struct {
	ID         int64
	Question   string
	Answer     string
	Subject    Subject
	Grade      Grade
	TimesAsked int
	AskedBy    []string
	CreatedAt  time.Time
}

type CacheStats struct {
	TotalRecords int
	PopularCount int // records asked more than 5 times
}
