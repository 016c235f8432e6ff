package repository

import "github.com/akinalp/emocircle/database"

// Repos bundles the repositories over one querier, so a service can rebuild
// them on a transaction for multi-statement work.
type Repos struct {
	Sessions     SessionRepository
	Participants ParticipantRepository
	Messages     MessageRepository
	Replies      ReplyRepository
}

// NewSQLiteRepos builds every repository on db (a pool or a *sql.Tx).
func NewSQLiteRepos(db database.TxQuerier) *Repos {
	return &Repos{
		Sessions:     NewSQLiteSessionRepo(db),
		Participants: NewSQLiteParticipantRepo(db),
		Messages:     NewSQLiteMessageRepo(db),
		Replies:      NewSQLiteReplyRepo(db),
	}
}
