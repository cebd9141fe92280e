package sqlite

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"tutorbot/internal/domain"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS lessons (
		id              TEXT PRIMARY KEY,
		native_language TEXT NOT NULL,
		target_language TEXT NOT NULL,
		proficiency     TEXT NOT NULL DEFAULT 'Beginner',
		scenario        TEXT DEFAULT '',
		started_at      DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_lessons_started_at ON lessons(started_at);

	CREATE TABLE IF NOT EXISTS mistakes (
		id                 INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id         TEXT DEFAULT '',
		native_language    TEXT DEFAULT '',
		target_language    TEXT DEFAULT '',
		error_sentence     TEXT NOT NULL,
		corrected_sentence TEXT NOT NULL,
		error_type         TEXT DEFAULT 'other',
		created_at         DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_mistakes_created_at ON mistakes(created_at);
	CREATE INDEX IF NOT EXISTS idx_mistakes_session ON mistakes(session_id);
	`
	_, err = db.Exec(schema)
	if err != nil {
		return nil, err
	}

	// Single writer only under SQLite.
	db.SetMaxOpenConns(1)

	return db, nil
}

// --- Lessons ---

func InsertLesson(db *sql.DB, l domain.Lesson) error {
	startedAt := l.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	_, err := db.Exec(
		`INSERT INTO lessons (id, native_language, target_language, proficiency, scenario, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		l.ID, l.NativeLanguage, l.TargetLanguage, l.Proficiency, l.Scenario, startedAt.UTC(),
	)
	return err
}

func GetLesson(db *sql.DB, id string) (domain.Lesson, error) {
	var l domain.Lesson
	err := db.QueryRow(
		`SELECT id, native_language, target_language, proficiency, scenario, started_at
		 FROM lessons WHERE id = ?`,
		id,
	).Scan(&l.ID, &l.NativeLanguage, &l.TargetLanguage, &l.Proficiency, &l.Scenario, &l.StartedAt)
	if err == sql.ErrNoRows {
		return l, domain.ErrLessonNotFound
	}
	return l, err
}

func ListRecentLessons(db *sql.DB, limit int) ([]domain.Lesson, error) {
	rows, err := db.Query(
		`SELECT id, native_language, target_language, proficiency, scenario, started_at
		 FROM lessons ORDER BY started_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Lesson
	for rows.Next() {
		var l domain.Lesson
		if err := rows.Scan(&l.ID, &l.NativeLanguage, &l.TargetLanguage, &l.Proficiency, &l.Scenario, &l.StartedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// --- Mistakes ---

func InsertMistake(db *sql.DB, m domain.Mistake) error {
	_, err := db.Exec(
		`INSERT INTO mistakes (session_id, native_language, target_language, error_sentence, corrected_sentence, error_type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.SessionID, m.NativeLanguage, m.TargetLanguage, m.ErrorSentence, m.CorrectedSentence, m.ErrorType, createdAtOrNow(m),
	)
	return err
}

// createdAtOrNow keeps all stored timestamps in UTC so they compare cleanly
// with the CURRENT_TIMESTAMP column defaults.
func createdAtOrNow(m domain.Mistake) time.Time {
	if m.CreatedAt.IsZero() {
		return time.Now().UTC()
	}
	return m.CreatedAt.UTC()
}

func InsertMistakes(db *sql.DB, ms []domain.Mistake) (int, error) {
	if len(ms) == 0 {
		return 0, nil
	}
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO mistakes (session_id, native_language, target_language, error_sentence, corrected_sentence, error_type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, m := range ms {
		_, err := stmt.Exec(m.SessionID, m.NativeLanguage, m.TargetLanguage, m.ErrorSentence, m.CorrectedSentence, m.ErrorType, createdAtOrNow(m))
		if err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, tx.Commit()
}

func scanMistakes(rows *sql.Rows) ([]domain.Mistake, error) {
	var out []domain.Mistake
	for rows.Next() {
		var m domain.Mistake
		err := rows.Scan(
			&m.ID, &m.SessionID, &m.NativeLanguage, &m.TargetLanguage,
			&m.ErrorSentence, &m.CorrectedSentence, &m.ErrorType, &m.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func GetRecentMistakes(db *sql.DB, limit int) ([]domain.Mistake, error) {
	rows, err := db.Query(
		`SELECT id, session_id, native_language, target_language, error_sentence, corrected_sentence, error_type, created_at
		 FROM mistakes ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMistakes(rows)
}

func GetMistakesBySession(db *sql.DB, sessionID string, limit int) ([]domain.Mistake, error) {
	rows, err := db.Query(
		`SELECT id, session_id, native_language, target_language, error_sentence, corrected_sentence, error_type, created_at
		 FROM mistakes WHERE session_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMistakes(rows)
}

func GetMistakesByDateRange(db *sql.DB, from, to time.Time) ([]domain.Mistake, error) {
	rows, err := db.Query(
		`SELECT id, session_id, native_language, target_language, error_sentence, corrected_sentence, error_type, created_at
		 FROM mistakes WHERE created_at >= ? AND created_at < ? ORDER BY created_at, id`,
		from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMistakes(rows)
}

// --- Aggregations ---

type TypeCount struct {
	ErrorType string
	Count     int
}

func CountByErrorType(db *sql.DB, since time.Time) ([]TypeCount, error) {
	rows, err := db.Query(
		`SELECT error_type, COUNT(*) as cnt
		 FROM mistakes WHERE created_at >= ?
		 GROUP BY error_type ORDER BY cnt DESC, error_type`,
		since.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TypeCount
	for rows.Next() {
		var t TypeCount
		if err := rows.Scan(&t.ErrorType, &t.Count); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type LanguageCount struct {
	TargetLanguage string
	Count          int
}

func CountByLanguage(db *sql.DB, since time.Time) ([]LanguageCount, error) {
	rows, err := db.Query(
		`SELECT target_language, COUNT(*) as cnt
		 FROM mistakes WHERE created_at >= ?
		 GROUP BY target_language ORDER BY cnt DESC, target_language`,
		since.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LanguageCount
	for rows.Next() {
		var c LanguageCount
		if err := rows.Scan(&c.TargetLanguage, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type WeeklyTrend struct {
	WeekStart string
	Mistakes  int
}

// GetWeeklyMistakeTrend buckets mistakes by calendar week (Monday start).
func GetWeeklyMistakeTrend(db *sql.DB, since time.Time) ([]WeeklyTrend, error) {
	rows, err := db.Query(
		`SELECT
		    strftime('%Y-%m-%d', created_at, 'weekday 0', '-6 days') as week_start,
		    COUNT(*) as mistakes
		 FROM mistakes
		 WHERE created_at >= ?
		 GROUP BY week_start
		 ORDER BY week_start`,
		since.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trends []WeeklyTrend
	for rows.Next() {
		var t WeeklyTrend
		if err := rows.Scan(&t.WeekStart, &t.Mistakes); err != nil {
			return nil, err
		}
		trends = append(trends, t)
	}
	return trends, rows.Err()
}

type RepeatedMistake struct {
	ErrorSentence     string
	CorrectedSentence string
	ErrorType         string
	Count             int
}

// GetRepeatedMistakes surfaces errors the learner keeps making, grouped on the
// normalized error sentence.
func GetRepeatedMistakes(db *sql.DB, since time.Time, minCount, limit int) ([]RepeatedMistake, error) {
	rows, err := db.Query(
		`SELECT LOWER(TRIM(error_sentence)), MAX(corrected_sentence), MAX(error_type), COUNT(*) as cnt
		 FROM mistakes
		 WHERE created_at >= ?
		 GROUP BY LOWER(TRIM(error_sentence))
		 HAVING cnt >= ?
		 ORDER BY cnt DESC, LOWER(TRIM(error_sentence))
		 LIMIT ?`,
		since.UTC(), minCount, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RepeatedMistake
	for rows.Next() {
		var r RepeatedMistake
		if err := rows.Scan(&r.ErrorSentence, &r.CorrectedSentence, &r.ErrorType, &r.Count); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type MistakeStats struct {
	TotalMistakes int
	Grammar       int
	Vocabulary    int
	Pronunciation int
	Syntax        int
	Other         int
}

func GetMistakeStats(db *sql.DB, since time.Time) (MistakeStats, error) {
	var s MistakeStats
	err := db.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN error_type = 'grammar' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN error_type = 'vocabulary' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN error_type = 'pronunciation' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN error_type = 'syntax' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN error_type NOT IN ('grammar','vocabulary','pronunciation','syntax') THEN 1 ELSE 0 END), 0)
		 FROM mistakes WHERE created_at >= ?`,
		since.UTC(),
	).Scan(&s.TotalMistakes, &s.Grammar, &s.Vocabulary, &s.Pronunciation, &s.Syntax, &s.Other)
	return s, err
}
