package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: STUDENTS AND COURSES
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS students (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id VARCHAR(100) NOT NULL UNIQUE,
    display_name VARCHAR(100) NOT NULL CHECK (length(trim(display_name)) > 0),
    accommodation_tags JSONB NOT NULL DEFAULT '[]'::jsonb,
    enrolled_course_ids JSONB NOT NULL DEFAULT '[]'::jsonb,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_students_user_id ON students(user_id);

CREATE TABLE IF NOT EXISTS courses (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    code VARCHAR(10) NOT NULL UNIQUE,
    subject VARCHAR(200) NOT NULL,
    level VARCHAR(50) NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'draft',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_courses_code ON courses(code);
CREATE INDEX IF NOT EXISTS idx_courses_status ON courses(status);
`

const migration001Down = `
DROP TABLE IF EXISTS courses;
DROP TABLE IF EXISTS students;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CURRICULUM DOCUMENTS, ENROLLMENT REFERENCES, LEGACY TABLE
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Canonical authored documents. entries_raw and metadata_raw hold the
-- encoded payload: tagged compressed text, plain JSON, or a blob marker.
CREATE TABLE IF NOT EXISTS curriculum_documents (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    course_id UUID NOT NULL REFERENCES courses(id),
    version VARCHAR(50) NOT NULL,
    entries_raw TEXT NOT NULL DEFAULT '',
    metadata_raw TEXT NOT NULL DEFAULT '',
    accessibility_notes TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_curriculum_documents_course ON curriculum_documents(course_id);

-- Per-student pointer to a document version. Never stores entries.
-- source_document_id is nullable: rows migrated from the pre-reference
-- schema may lack it until backfilled.
CREATE TABLE IF NOT EXISTS enrollment_references (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    student_id UUID NOT NULL REFERENCES students(id),
    course_id UUID NOT NULL REFERENCES courses(id),
    source_document_id UUID,
    source_version VARCHAR(50) NOT NULL DEFAULT '',
    overlay_raw TEXT NOT NULL DEFAULT '{}',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    UNIQUE (student_id, course_id)
);

CREATE INDEX IF NOT EXISTS idx_enrollment_refs_pair ON enrollment_references(student_id, course_id);

-- Flat pre-reference curriculum rows, read-only fallback.
CREATE TABLE IF NOT EXISTS curriculum_entries_legacy (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    student_id UUID NOT NULL,
    course_id UUID NOT NULL,
    entry_order INTEGER NOT NULL CHECK (entry_order > 0),
    lesson_template_id UUID NOT NULL,
    planned_at TIMESTAMP WITH TIME ZONE,

    UNIQUE (student_id, course_id, entry_order)
);

CREATE INDEX IF NOT EXISTS idx_legacy_entries_pair ON curriculum_entries_legacy(student_id, course_id);
`

const migration002Down = `
DROP TABLE IF EXISTS curriculum_entries_legacy;
DROP TABLE IF EXISTS enrollment_references;
DROP TABLE IF EXISTS curriculum_documents;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: LESSON CATALOG
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
CREATE TABLE IF NOT EXISTS lesson_templates (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    course_id UUID NOT NULL REFERENCES courses(id),
    title VARCHAR(300) NOT NULL,
    outcome_refs_raw TEXT NOT NULL DEFAULT '',
    prereqs_raw TEXT NOT NULL DEFAULT '',
    est_minutes INTEGER NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'draft',
    lesson_type VARCHAR(20) NOT NULL DEFAULT 'ordinary',
    difficulty SMALLINT NOT NULL DEFAULT 1,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_lesson_templates_course_status ON lesson_templates(course_id, status);
`

const migration003Down = `
DROP TABLE IF EXISTS lesson_templates;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: PROGRESS AND CONTINUITY
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
CREATE TABLE IF NOT EXISTS mastery_records (
    student_id UUID NOT NULL,
    course_id UUID NOT NULL,
    ema_by_outcome JSONB NOT NULL DEFAULT '{}'::jsonb,
    observation_counts JSONB NOT NULL DEFAULT '{}'::jsonb,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (student_id, course_id)
);

CREATE TABLE IF NOT EXISTS routine_records (
    student_id UUID NOT NULL,
    course_id UUID NOT NULL,
    due_by_outcome JSONB NOT NULL DEFAULT '{}'::jsonb,
    last_taught_at TIMESTAMP WITH TIME ZONE,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (student_id, course_id)
);

-- version drives optimistic locking on concurrent recommendation runs.
CREATE TABLE IF NOT EXISTS continuity_records (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    student_id UUID NOT NULL,
    course_id UUID NOT NULL,
    thread_id VARCHAR(200) NOT NULL DEFAULT '',
    recommendation_count INTEGER NOT NULL DEFAULT 0,
    version INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    UNIQUE (student_id, course_id)
);
`

const migration004Down = `
DROP TABLE IF EXISTS continuity_records;
DROP TABLE IF EXISTS routine_records;
DROP TABLE IF EXISTS mastery_records;
`
