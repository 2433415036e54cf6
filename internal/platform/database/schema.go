package database

// Schema is the catalog DDL. The ownership tree is courses -> modules
// -> tasks -> submissions with hard ON DELETE CASCADE edges;
// users.current_course is a soft pointer with ON DELETE SET NULL.
// Uniqueness that the application relies on under concurrency lives
// here: courses.title, courses.slug and submissions(user_id, task_id).
const Schema = `
CREATE TABLE IF NOT EXISTS courses (
    course_id   BIGSERIAL PRIMARY KEY,
    title       TEXT NOT NULL UNIQUE,
    slug        TEXT NOT NULL UNIQUE,
    description TEXT NOT NULL DEFAULT '',
    media_id    TEXT
);

CREATE TABLE IF NOT EXISTS users (
    user_id        BIGINT PRIMARY KEY,
    full_name      TEXT NOT NULL,
    current_course BIGINT REFERENCES courses(course_id) ON DELETE SET NULL,
    registered_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS modules (
    module_id BIGSERIAL PRIMARY KEY,
    course_id BIGINT NOT NULL REFERENCES courses(course_id) ON DELETE CASCADE,
    title     TEXT NOT NULL,
    media_id  TEXT
);

CREATE TABLE IF NOT EXISTS tasks (
    task_id   BIGSERIAL PRIMARY KEY,
    module_id BIGINT NOT NULL REFERENCES modules(module_id) ON DELETE CASCADE,
    title     TEXT NOT NULL,
    content   TEXT NOT NULL,
    file_id   TEXT
);

CREATE TABLE IF NOT EXISTS submissions (
    submission_id BIGSERIAL PRIMARY KEY,
    user_id       BIGINT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
    task_id       BIGINT NOT NULL REFERENCES tasks(task_id) ON DELETE CASCADE,
    status        TEXT NOT NULL DEFAULT 'pending'
                  CHECK (status IN ('pending', 'accepted', 'rejected')),
    score         INT CHECK (score BETWEEN 0 AND 100),
    submitted_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    file_ids      TEXT NOT NULL DEFAULT '',
    content       TEXT,
    UNIQUE (user_id, task_id)
);

CREATE INDEX IF NOT EXISTS idx_modules_course ON modules(course_id);
CREATE INDEX IF NOT EXISTS idx_tasks_module ON tasks(module_id);
CREATE INDEX IF NOT EXISTS idx_users_current_course ON users(current_course);
`
