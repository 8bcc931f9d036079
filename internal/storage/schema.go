package storage

const schema = `
-- The 'sources' table tracks where imported cards came from, either a local
-- directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    last_scanned DATETIME
);

-- The 'cards' table stores the core study material. Cards are soft-deleted
-- via is_active so progress history stays intact.
CREATE TABLE IF NOT EXISTS cards (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    content TEXT NOT NULL,
    source_material TEXT NOT NULL DEFAULT '',
    tags TEXT NOT NULL DEFAULT '',
    difficulty INTEGER NOT NULL DEFAULT 3,
    is_active INTEGER NOT NULL DEFAULT 1,
    source_id INTEGER,
    fingerprint TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL,

    FOREIGN KEY(source_id) REFERENCES sources(id)
);
CREATE INDEX IF NOT EXISTS idx_cards_fingerprint ON cards(fingerprint);
CREATE INDEX IF NOT EXISTS idx_cards_source ON cards(source_id);

-- The 'questions' table holds the generated phrasings for each card.
CREATE TABLE IF NOT EXISTS questions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    card_id INTEGER NOT NULL,
    question_text TEXT NOT NULL,
    answer_text TEXT NOT NULL,
    question_type TEXT NOT NULL DEFAULT 'standard',
    difficulty INTEGER NOT NULL DEFAULT 3,
    created_at DATETIME NOT NULL,

    FOREIGN KEY(card_id) REFERENCES cards(id)
);
CREATE INDEX IF NOT EXISTS idx_questions_card ON questions(card_id);

-- The 'user_progress' table carries the scheduling state per (card, question)
-- pair. 'version' backs optimistic concurrency control on updates.
CREATE TABLE IF NOT EXISTS user_progress (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    card_id INTEGER NOT NULL,
    question_id INTEGER,
    ease_factor REAL NOT NULL DEFAULT 2.5,
    interval_days INTEGER NOT NULL DEFAULT 1,
    repetitions INTEGER NOT NULL DEFAULT 0,
    last_review DATETIME,
    next_review DATETIME,
    total_reviews INTEGER NOT NULL DEFAULT 0,
    correct_reviews INTEGER NOT NULL DEFAULT 0,
    streak INTEGER NOT NULL DEFAULT 0,
    version INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL,

    FOREIGN KEY(card_id) REFERENCES cards(id),
    FOREIGN KEY(question_id) REFERENCES questions(id),
    UNIQUE(card_id, question_id)
);
CREATE INDEX IF NOT EXISTS idx_progress_next_review ON user_progress(next_review);

-- The 'study_sessions' table records one row per session.
CREATE TABLE IF NOT EXISTS study_sessions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL DEFAULT '',
    mode TEXT NOT NULL,
    start_time DATETIME NOT NULL,
    end_time DATETIME,
    cards_reviewed INTEGER NOT NULL DEFAULT 0,
    correct_answers INTEGER NOT NULL DEFAULT 0,
    average_response_time REAL NOT NULL DEFAULT 0,
    is_completed INTEGER NOT NULL DEFAULT 0,
    abort_reason TEXT NOT NULL DEFAULT ''
);

-- The 'session_reviews' table is the append-only log of answer events.
CREATE TABLE IF NOT EXISTS session_reviews (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id INTEGER NOT NULL,
    card_id INTEGER NOT NULL,
    question_id INTEGER NOT NULL,
    user_response TEXT NOT NULL DEFAULT '',
    transcribed_response TEXT,
    is_correct INTEGER NOT NULL,
    confidence REAL NOT NULL DEFAULT 0,
    response_time_seconds REAL NOT NULL DEFAULT 0,
    feedback TEXT NOT NULL DEFAULT '',
    difficulty_rating INTEGER,
    reviewed_at DATETIME NOT NULL,

    FOREIGN KEY(session_id) REFERENCES study_sessions(id)
);
CREATE INDEX IF NOT EXISTS idx_session_reviews_session ON session_reviews(session_id);
`
