package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"quill/internal/phase"
)

// GraphStore is the Neo4j-backed Store. One GraphStore serves one content
// session at a time; sessions are acquired per operation and released before
// the operation returns.
type GraphStore struct {
	driver neo4j.DriverWithContext
	log    *zap.Logger

	contentID string
	phaseID   string
}

// Connect opens the driver, verifies connectivity and ensures the graph
// constraints exist. Phase identity must come from a reachable store, so a
// failed connection is an error here rather than a degraded mode.
func Connect(ctx context.Context, uri, username, password string, log *zap.Logger) (*GraphStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("%w: create driver: %v", ErrStoreUnavailable, err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("%w: verify connectivity: %v", ErrStoreUnavailable, err)
	}

	s := &GraphStore{driver: driver, log: log}
	if err := s.ensureConstraints(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, err
	}
	return s, nil
}

func (s *GraphStore) ensureConstraints(ctx context.Context) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	statements := []string{
		"CREATE CONSTRAINT IF NOT EXISTS FOR (c:Content) REQUIRE c.id IS UNIQUE",
		"CREATE CONSTRAINT IF NOT EXISTS FOR (p:Phase) REQUIRE p.id IS UNIQUE",
		"CREATE INDEX IF NOT EXISTS FOR (p:Point) ON (p.text)",
	}
	for _, stmt := range statements {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			return fmt.Errorf("%w: ensure constraints: %v", ErrStoreUnavailable, err)
		}
	}
	return nil
}

func (s *GraphStore) StartSession(ctx context.Context, contentType, topic string) (string, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			CREATE (c:Content {id: randomUUID(), type: $type, topic: $topic, created: datetime()})
			CREATE (p:Phase {id: randomUUID(), name: $phase, started: datetime()})
			CREATE (c)-[:CURRENT_PHASE]->(p)
			RETURN c.id AS content_id, p.id AS phase_id`,
			map[string]any{
				"type":  contentType,
				"topic": topic,
				"phase": phase.ContextGathering.String(),
			})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		return record.AsMap(), nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: start session: %v", ErrStoreUnavailable, err)
	}

	row := result.(map[string]any)
	s.contentID, _ = row["content_id"].(string)
	s.phaseID, _ = row["phase_id"].(string)
	s.log.Info("started content session",
		zap.String("session_id", s.contentID),
		zap.String("topic", topic),
		zap.String("content_type", contentType))
	return s.contentID, nil
}

func (s *GraphStore) LoadSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (c:Content {id: $session_id})
			OPTIONAL MATCH (c)-[:CURRENT_PHASE]->(p:Phase)
			RETURN c.id AS content_id, c.topic AS topic, c.type AS type,
			       c.created AS created, p.id AS phase_id, p.name AS phase_name`,
			map[string]any{"session_id": sessionID})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, nil
		}
		info := recordToMap(records[0])

		// Last issued question, if any, so a resumed session can keep the
		// input-to-question chain intact.
		qres, err := tx.Run(ctx, `
			MATCH (c:Content {id: $session_id})-[:HAS_QUESTION]->(q:Question)
			RETURN q.id AS question_id, q.text AS question_text
			ORDER BY q.timestamp DESC
			LIMIT 1`,
			map[string]any{"session_id": sessionID})
		if err != nil {
			return nil, err
		}
		qrecords, err := qres.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(qrecords) > 0 {
			q := recordToMap(qrecords[0])
			info["question_id"] = q["question_id"]
			info["question_text"] = q["question_text"]
		}
		return info, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: load session: %v", ErrStoreUnavailable, err)
	}
	if result == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	row := result.(map[string]any)
	info := sessionInfoFromRow(row)
	info.LastQuestionID, _ = row["question_id"].(string)
	info.LastQuestionText, _ = row["question_text"].(string)

	s.contentID = info.ID
	s.phaseID, _ = row["phase_id"].(string)
	s.log.Info("loaded content session",
		zap.String("session_id", info.ID),
		zap.String("phase", info.CurrentPhase))
	return &info, nil
}

func (s *GraphStore) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (c:Content)
			OPTIONAL MATCH (c)-[:CURRENT_PHASE]->(p:Phase)
			RETURN c.id AS content_id, c.topic AS topic, c.type AS type,
			       c.created AS created, p.name AS phase_name
			ORDER BY c.created DESC`, nil)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list sessions: %v", ErrStoreUnavailable, err)
	}

	records := result.([]*neo4j.Record)
	sessions := make([]SessionInfo, 0, len(records))
	for _, record := range records {
		sessions = append(sessions, sessionInfoFromRow(recordToMap(record)))
	}
	return sessions, nil
}

func (s *GraphStore) AddUserInput(ctx context.Context, text, questionID string) (string, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (c:Content {id: $content_id})
			CREATE (i:UserInput {id: randomUUID(), text: $text, timestamp: datetime()})
			CREATE (c)-[:HAS_INPUT]->(i)
			RETURN i.id AS input_id`,
			map[string]any{"content_id": s.contentID, "text": text})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		inputID, _ := record.Get("input_id")

		if questionID != "" {
			_, err = tx.Run(ctx, `
				MATCH (i:UserInput {id: $input_id})
				MATCH (q:Question {id: $question_id})
				CREATE (i)-[:RESPONSE_TO]->(q)`,
				map[string]any{"input_id": inputID, "question_id": questionID})
			if err != nil {
				return nil, err
			}
		}
		return inputID, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: add user input: %v", ErrStoreUnavailable, err)
	}
	id, _ := result.(string)
	return id, nil
}

func (s *GraphStore) AddQuestion(ctx context.Context, text, phaseName string) (string, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (c:Content {id: $content_id})
			MATCH (p:Phase {id: $phase_id})
			CREATE (q:Question {id: randomUUID(), text: $text, intent: $intent, timestamp: datetime()})
			CREATE (c)-[:HAS_QUESTION]->(q)
			CREATE (p)-[:ASKED]->(q)
			RETURN q.id AS question_id`,
			map[string]any{
				"content_id": s.contentID,
				"phase_id":   s.phaseID,
				"text":       text,
				"intent":     phaseName,
			})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		id, _ := record.Get("question_id")
		return id, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: add question: %v", ErrStoreUnavailable, err)
	}
	id, _ := result.(string)
	return id, nil
}

func (s *GraphStore) AddSection(ctx context.Context, title string) (string, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (c:Content {id: $content_id})
			CREATE (s:Section {id: randomUUID(), title: $title, created: datetime()})
			CREATE (c)-[:HAS_SECTION]->(s)
			RETURN s.id AS section_id`,
			map[string]any{"content_id": s.contentID, "title": title})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		id, _ := record.Get("section_id")
		return id, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: add section: %v", ErrStoreUnavailable, err)
	}
	id, _ := result.(string)
	return id, nil
}

func (s *GraphStore) ContentStructure(ctx context.Context) ([]Section, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (c:Content {id: $content_id})-[:HAS_SECTION]->(s:Section)
			OPTIONAL MATCH (s)-[:CONTAINS]->(p:Point)
			OPTIONAL MATCH (p)-[:SUPPORTED_BY]->(e:Evidence)
			WITH s, p, collect(e.text) AS evidence
			ORDER BY s.created, p.created
			RETURN s.title AS section, collect({point: p.text, evidence: evidence}) AS points`,
			map[string]any{"content_id": s.contentID})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: content structure: %v", ErrStoreUnavailable, err)
	}

	records := result.([]*neo4j.Record)
	sections := make([]Section, 0, len(records))
	for _, record := range records {
		row := recordToMap(record)
		section := Section{}
		section.Title, _ = row["section"].(string)

		points, _ := row["points"].([]any)
		for _, raw := range points {
			entry, _ := raw.(map[string]any)
			text, _ := entry["point"].(string)
			if text == "" {
				continue
			}
			point := Point{Text: text}
			if evidence, ok := entry["evidence"].([]any); ok {
				for _, e := range evidence {
					if s, ok := e.(string); ok && s != "" {
						point.Evidence = append(point.Evidence, s)
					}
				}
			}
			section.Points = append(section.Points, point)
		}
		sections = append(sections, section)
	}
	return sections, nil
}

func (s *GraphStore) CurrentPhase(ctx context.Context) (string, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (c:Content {id: $content_id})-[:CURRENT_PHASE]->(p:Phase)
			RETURN p.name AS phase_name`,
			map[string]any{"content_id": s.contentID})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		name, _ := record.Get("phase_name")
		return name, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: current phase: %v", ErrStoreUnavailable, err)
	}
	name, _ := result.(string)
	return name, nil
}

// TransitionPhase ends the current phase and starts the named one inside a
// single managed transaction, so a failure can never leave the session
// between phases.
func (s *GraphStore) TransitionPhase(ctx context.Context, phaseName string) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, `
			MATCH (c:Content {id: $content_id})-[r:CURRENT_PHASE]->(p:Phase)
			SET p.ended = datetime()
			DELETE r`,
			map[string]any{"content_id": s.contentID})
		if err != nil {
			return nil, err
		}

		res, err := tx.Run(ctx, `
			MATCH (c:Content {id: $content_id})
			CREATE (p:Phase {id: randomUUID(), name: $phase_name, started: datetime()})
			CREATE (c)-[:CURRENT_PHASE]->(p)
			RETURN p.id AS phase_id`,
			map[string]any{"content_id": s.contentID, "phase_name": phaseName})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		id, _ := record.Get("phase_id")
		return id, nil
	})
	if err != nil {
		return fmt.Errorf("%w: transition phase: %v", ErrStoreUnavailable, err)
	}
	s.phaseID, _ = result.(string)
	return nil
}

func (s *GraphStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func recordToMap(record *neo4j.Record) map[string]any {
	return record.AsMap()
}

func sessionInfoFromRow(row map[string]any) SessionInfo {
	info := SessionInfo{}
	info.ID, _ = row["content_id"].(string)
	info.Topic, _ = row["topic"].(string)
	info.ContentType, _ = row["type"].(string)
	info.CurrentPhase, _ = row["phase_name"].(string)
	if created, ok := row["created"].(time.Time); ok {
		info.Created = created
	}
	return info
}
