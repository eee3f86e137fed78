package shared

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/campuserp/erp/core"
	"github.com/campuserp/erp/core/attendance"
	"github.com/campuserp/erp/core/counter"
	"github.com/campuserp/erp/core/course"
	"github.com/campuserp/erp/core/fee"
	"github.com/campuserp/erp/core/notice"
	"github.com/campuserp/erp/core/session"
	"github.com/campuserp/erp/core/student"
	"github.com/campuserp/erp/core/user"
	"github.com/campuserp/erp/storage/database"
	inmemdb "github.com/campuserp/erp/storage/database/inmem"
	sqlxrepos "github.com/campuserp/erp/storage/database/sqlx"
)

const (
	EnginePostgres = "postgres"
	EngineMemory   = "memory"
)

// Repositories is one storage backend for every domain package.
type Repositories struct {
	User       user.Repository
	Counter    counter.Repository
	Course     course.Repository
	Session    session.Repository
	Student    student.Repository
	Fee        fee.Repository
	Notice     notice.Repository
	Attendance attendance.Repository
}

func PostgresRepositories(db *sqlx.DB) Repositories {
	return Repositories{
		User:       sqlxrepos.NewUserRepository(db),
		Counter:    sqlxrepos.NewCounterRepository(db),
		Course:     sqlxrepos.NewCourseRepository(db),
		Session:    sqlxrepos.NewSessionRepository(db),
		Student:    sqlxrepos.NewStudentRepository(db),
		Fee:        sqlxrepos.NewFeeRepository(db),
		Notice:     sqlxrepos.NewNoticeRepository(db),
		Attendance: sqlxrepos.NewAttendanceRepository(db),
	}
}

func MemoryRepositories(db *inmemdb.DB) Repositories {
	return Repositories{
		User:       inmemdb.NewUserRepository(db),
		Counter:    inmemdb.NewCounterRepository(db),
		Course:     inmemdb.NewCourseRepository(db),
		Session:    inmemdb.NewSessionRepository(db),
		Student:    inmemdb.NewStudentRepository(db),
		Fee:        inmemdb.NewFeeRepository(db),
		Notice:     inmemdb.NewNoticeRepository(db),
		Attendance: inmemdb.NewAttendanceRepository(db),
	}
}

// Storage is the opened backend. DB is nil for the memory engine.
type Storage struct {
	Engine string
	DB     *sqlx.DB
	Repos  Repositories
}

func (s *Storage) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// OpenStorage opens the engine named by conf.Database.Engine.
// For postgres, create makes the database & its user when missing, and migrate runs the migrations up.
func OpenStorage(conf *core.Config, create, migrate bool) (*Storage, error) {
	switch conf.Database.Engine {
	case EngineMemory:
		return &Storage{Engine: EngineMemory, Repos: MemoryRepositories(inmemdb.Open())}, nil

	case EnginePostgres, "":
		if create {
			if err := database.CreateIfNotExist(conf); err != nil {
				return nil, errors.Wrap(err, "creating database")
			}
		}
		db, err := database.Open(conf)
		if err != nil {
			return nil, errors.Wrap(err, "opening database")
		}
		if migrate {
			if err := database.Migrate(db.DB); err != nil {
				_ = db.Close()
				return nil, errors.Wrap(err, "migrating database")
			}
		}
		return &Storage{Engine: EnginePostgres, DB: db, Repos: PostgresRepositories(db)}, nil

	default:
		return nil, fmt.Errorf("unknown database engine %q", conf.Database.Engine)
	}
}
