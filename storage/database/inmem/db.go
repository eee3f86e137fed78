// Package inmemdb implements the core repositories in memory, for development & tests.
package inmemdb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/campuserp/erp/core/attendance"
	"github.com/campuserp/erp/core/course"
	"github.com/campuserp/erp/core/fee"
	"github.com/campuserp/erp/core/notice"
	"github.com/campuserp/erp/core/session"
	"github.com/campuserp/erp/core/student"
	"github.com/campuserp/erp/core/user"
)

type (
	DB struct {
		user       *userTable
		course     *courseTable
		counter    *counterTable
		session    *sessionTable
		student    *studentTable
		fee        *feeTables
		notice     *noticeTable
		attendance *attendanceTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	courseTable struct {
		sync.RWMutex
		table map[string]*course.Course
	}

	counterTable struct {
		sync.Mutex
		table map[string]int64
	}

	sessionTable struct {
		sync.RWMutex
		table map[string]*session.Session
	}

	studentTable struct {
		sync.RWMutex
		table map[string]*student.Student
	}

	feeTables struct {
		sync.RWMutex
		structures map[string]*fee.Structure
		receipts   map[string]*fee.Receipt
		orders     map[string]*fee.PaymentOrder
	}

	noticeTable struct {
		sync.RWMutex
		table map[string]*notice.Notice
	}

	attendanceTable struct {
		sync.RWMutex
		table map[string]*attendance.Record
	}
)

func Open() *DB {
	return &DB{
		user:    &userTable{table: make(map[string]*user.User)},
		course:  &courseTable{table: make(map[string]*course.Course)},
		counter: &counterTable{table: make(map[string]int64)},
		session: &sessionTable{table: make(map[string]*session.Session)},
		student: &studentTable{table: make(map[string]*student.Student)},
		fee: &feeTables{
			structures: make(map[string]*fee.Structure),
			receipts:   make(map[string]*fee.Receipt),
			orders:     make(map[string]*fee.PaymentOrder),
		},
		notice:     &noticeTable{table: make(map[string]*notice.Notice)},
		attendance: &attendanceTable{table: make(map[string]*attendance.Record)},
	}
}

func newID() string {
	return uuid.New().String()
}

func isExcluded(id string, excludedIDs []string) bool {
	for _, exclID := range excludedIDs {
		if exclID == id {
			return true
		}
	}
	return false
}
