package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE USERS AND ROOMS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create users, rooms and memberships
-- Version: 001

CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY,
    display_name VARCHAR(100) NOT NULL,
    total_points INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_total_points CHECK (total_points >= 0)
);

CREATE INDEX IF NOT EXISTS idx_users_total_points ON users(total_points DESC);

CREATE TABLE IF NOT EXISTS rooms (
    id UUID PRIMARY KEY,
    name VARCHAR(100) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    code VARCHAR(8) NOT NULL UNIQUE,
    creator_id UUID NOT NULL REFERENCES users(id) ON DELETE RESTRICT,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_rooms_code ON rooms(code);
CREATE INDEX IF NOT EXISTS idx_rooms_creator ON rooms(creator_id);

CREATE TABLE IF NOT EXISTS memberships (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    room_id UUID NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
    role VARCHAR(20) NOT NULL,
    joined_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    UNIQUE(user_id, room_id),
    CONSTRAINT valid_role CHECK (role IN ('teacher', 'student'))
);

CREATE INDEX IF NOT EXISTS idx_memberships_user ON memberships(user_id);
CREATE INDEX IF NOT EXISTS idx_memberships_room ON memberships(room_id);
CREATE INDEX IF NOT EXISTS idx_memberships_room_role ON memberships(room_id, role);

-- Updated_at trigger function shared by all tables
CREATE OR REPLACE FUNCTION update_updated_at_column()
RETURNS TRIGGER AS $$
BEGIN
    NEW.updated_at = NOW();
    RETURN NEW;
END;
$$ language 'plpgsql';

DROP TRIGGER IF EXISTS update_users_updated_at ON users;
CREATE TRIGGER update_users_updated_at
    BEFORE UPDATE ON users
    FOR EACH ROW
    EXECUTE FUNCTION update_updated_at_column();

DROP TRIGGER IF EXISTS update_rooms_updated_at ON rooms;
CREATE TRIGGER update_rooms_updated_at
    BEFORE UPDATE ON rooms
    FOR EACH ROW
    EXECUTE FUNCTION update_updated_at_column();
`

const migration001Down = `
DROP TRIGGER IF EXISTS update_rooms_updated_at ON rooms;
DROP TRIGGER IF EXISTS update_users_updated_at ON users;
DROP FUNCTION IF EXISTS update_updated_at_column();
DROP TABLE IF EXISTS memberships;
DROP TABLE IF EXISTS rooms;
DROP TABLE IF EXISTS users;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE TRACKS AND CONTENT
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create tracks, modules, contents and view records
-- Version: 002

CREATE TABLE IF NOT EXISTS tracks (
    id UUID PRIMARY KEY,
    room_id UUID NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
    name VARCHAR(200) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    order_index INTEGER NOT NULL DEFAULT 0,
    points_required INTEGER NOT NULL DEFAULT 0,
    prerequisite_id UUID REFERENCES tracks(id) ON DELETE SET NULL,
    creator_id UUID NOT NULL REFERENCES users(id) ON DELETE RESTRICT,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_points_required CHECK (points_required >= 0),
    CONSTRAINT no_self_prerequisite CHECK (prerequisite_id IS NULL OR prerequisite_id != id)
);

CREATE INDEX IF NOT EXISTS idx_tracks_room ON tracks(room_id, order_index);
CREATE INDEX IF NOT EXISTS idx_tracks_prerequisite ON tracks(prerequisite_id) WHERE prerequisite_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS modules (
    id UUID PRIMARY KEY,
    track_id UUID NOT NULL REFERENCES tracks(id) ON DELETE CASCADE,
    title VARCHAR(200) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    order_index INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_modules_track ON modules(track_id, order_index);

CREATE TABLE IF NOT EXISTS contents (
    id UUID PRIMARY KEY,
    module_id UUID NOT NULL REFERENCES modules(id) ON DELETE CASCADE,
    title VARCHAR(200) NOT NULL,
    content_type VARCHAR(20) NOT NULL,
    body TEXT NOT NULL DEFAULT '',
    estimated_minutes INTEGER NOT NULL DEFAULT 0,
    order_index INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_content_type CHECK (content_type IN ('text', 'video', 'file', 'link'))
);

CREATE INDEX IF NOT EXISTS idx_contents_module ON contents(module_id, order_index);

CREATE TABLE IF NOT EXISTS view_records (
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    content_id UUID NOT NULL REFERENCES contents(id) ON DELETE CASCADE,
    completed BOOLEAN NOT NULL DEFAULT FALSE,
    seconds_spent INTEGER NOT NULL DEFAULT 0,
    viewed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (user_id, content_id)
);

CREATE INDEX IF NOT EXISTS idx_view_records_content ON view_records(content_id) WHERE completed;
`

const migration002Down = `
DROP TABLE IF EXISTS view_records;
DROP TABLE IF EXISTS contents;
DROP TABLE IF EXISTS modules;
DROP TABLE IF EXISTS tracks;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE MISSIONS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create missions, submissions and grades
-- Version: 003

CREATE TABLE IF NOT EXISTS missions (
    id UUID PRIMARY KEY,
    room_id UUID NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
    title VARCHAR(200) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    points INTEGER NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    creator_id UUID NOT NULL REFERENCES users(id) ON DELETE RESTRICT,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_points CHECK (points > 0),
    CONSTRAINT valid_status CHECK (status IN ('pending', 'submitted', 'graded'))
);

CREATE INDEX IF NOT EXISTS idx_missions_room ON missions(room_id);
CREATE INDEX IF NOT EXISTS idx_missions_status ON missions(status) WHERE status != 'graded';

CREATE TABLE IF NOT EXISTS submissions (
    mission_id UUID NOT NULL REFERENCES missions(id) ON DELETE CASCADE,
    student_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    submitted_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (mission_id, student_id)
);

CREATE INDEX IF NOT EXISTS idx_submissions_student ON submissions(student_id);

-- One grade per (mission, student). Re-grades overwrite the row; the awarded
-- points here are the single source of truth for every score the engine shows.
CREATE TABLE IF NOT EXISTS grades (
    mission_id UUID NOT NULL REFERENCES missions(id) ON DELETE CASCADE,
    student_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    teacher_id UUID NOT NULL REFERENCES users(id) ON DELETE RESTRICT,
    points_awarded INTEGER NOT NULL,
    graded_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (mission_id, student_id),
    CONSTRAINT valid_points_awarded CHECK (points_awarded >= 0)
);

CREATE INDEX IF NOT EXISTS idx_grades_student ON grades(student_id);
CREATE INDEX IF NOT EXISTS idx_grades_student_completed ON grades(student_id) WHERE points_awarded > 0;
`

const migration003Down = `
DROP TABLE IF EXISTS grades;
DROP TABLE IF EXISTS submissions;
DROP TABLE IF EXISTS missions;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: CREATE TITLES
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
-- Migration: Create titles and grants
-- Version: 004

CREATE TABLE IF NOT EXISTS titles (
    id UUID PRIMARY KEY,
    name VARCHAR(100) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    scope VARCHAR(20) NOT NULL,
    room_id UUID REFERENCES rooms(id) ON DELETE CASCADE,
    min_points INTEGER NOT NULL DEFAULT 0,
    min_completed_missions INTEGER NOT NULL DEFAULT 0,
    creator_id UUID NOT NULL REFERENCES users(id) ON DELETE RESTRICT,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_scope CHECK (scope IN ('global', 'room')),
    CONSTRAINT scope_room_pair CHECK (
        (scope = 'global' AND room_id IS NULL) OR
        (scope = 'room' AND room_id IS NOT NULL)
    ),
    CONSTRAINT valid_thresholds CHECK (min_points >= 0 AND min_completed_missions >= 0)
);

CREATE INDEX IF NOT EXISTS idx_titles_room ON titles(room_id) WHERE room_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_titles_scope ON titles(scope);

-- Grants reference either a user (global titles) or a membership (room
-- titles), never both. Grants are never deleted by the engine.
CREATE TABLE IF NOT EXISTS title_grants (
    title_id UUID NOT NULL REFERENCES titles(id) ON DELETE CASCADE,
    user_id UUID REFERENCES users(id) ON DELETE CASCADE,
    membership_id UUID REFERENCES memberships(id) ON DELETE CASCADE,
    granted_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT grant_target CHECK (
        (user_id IS NOT NULL AND membership_id IS NULL) OR
        (user_id IS NULL AND membership_id IS NOT NULL)
    )
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_title_grants_user
    ON title_grants(title_id, user_id) WHERE user_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS idx_title_grants_membership
    ON title_grants(title_id, membership_id) WHERE membership_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_title_grants_by_user ON title_grants(user_id) WHERE user_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_title_grants_by_membership ON title_grants(membership_id) WHERE membership_id IS NOT NULL;
`

const migration004Down = `
DROP TABLE IF EXISTS title_grants;
DROP TABLE IF EXISTS titles;
`

// GetMigrations returns all embedded migrations in order.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_users_and_rooms", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_tracks_and_content", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_missions", UpSQL: migration003Up, DownSQL: migration003Down},
		{Version: 4, Name: "create_titles", UpSQL: migration004Up, DownSQL: migration004Down},
	}
}
