package command

// Audit actions written by the handlers in this package.
const (
	ActionLogin              = "login"
	ActionLogout             = "logout"
	ActionUserUpdated        = "user_updated"
	ActionUserAdminToggled   = "user_admin_toggled"
	ActionUserActiveChanged  = "user_active_changed"
	ActionUserDeleted        = "user_deleted"
	ActionCompetencyCreated  = "competency_created"
	ActionCompetencyUpdated  = "competency_updated"
	ActionCompetencyDeleted  = "competency_deleted"
	ActionCompetenciesSeeded = "competencies_seeded"
	ActionStoryCreated       = "story_created"
	ActionStoryUpdated       = "story_updated"
	ActionStoryDeleted       = "story_deleted"
	ActionCaseStudyCreated   = "case_study_created"
	ActionCaseStudyUpdated   = "case_study_updated"
	ActionCaseStudyDeleted   = "case_study_deleted"
	ActionGenerateStory      = "generate_story"
	ActionEvaluateStory      = "evaluate_story"
	ActionImproveStory       = "improve_story"
	ActionTextAnalysis       = "text_analysis"
	ActionImageAnalysis      = "image_analysis"
	ActionGapAnalysis        = "gap_analysis"
	ActionGeneralQuery       = "general_query"
)

// Entity types recorded on audit entries.
const (
	EntityUser       = "user"
	EntityCompetency = "competency"
	EntityStory      = "star_story"
	EntityCaseStudy  = "case_study"
)
