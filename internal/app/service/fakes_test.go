package service

import (
	"bytes"
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"olymphub/internal/common"
	"olymphub/internal/domain/model"
)

// In-memory repository fakes. Transactions are satisfied by a stub
// database/sql driver (see below); the repos themselves ignore the tx handle
// just like the pg implementations accept a nil one.

type fakeUserRepo struct {
	mu       sync.Mutex
	users    map[string]*model.User
	profiles map[string]*model.UserProfile
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:    map[string]*model.User{},
		profiles: map[string]*model.UserProfile{},
	}
}

func (r *fakeUserRepo) addUser(id, username, role string) {
	r.users[id] = &model.User{ID: id, Username: username, Email: username + "@example.com"}
	r.profiles[id] = &model.UserProfile{UserID: id, Role: role}
}

func (r *fakeUserRepo) Create(ctx context.Context, tx *sql.Tx, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return common.ErrConflict
		}
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) findBy(match func(*model.User) bool) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findBy(func(u *model.User) bool { return u.Email == email })
}

func (r *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findBy(func(u *model.User) bool { return u.Username == username })
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findBy(func(u *model.User) bool { return u.ID == id })
}

func (r *fakeUserRepo) CreateProfile(ctx context.Context, tx *sql.Tx, p *model.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[p.UserID]; ok {
		return common.ErrConflict
	}
	cp := *p
	r.profiles[p.UserID] = &cp
	return nil
}

func (r *fakeUserRepo) GetProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeUserRepo) UpdateProfile(ctx context.Context, p *model.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[p.UserID]; !ok {
		return common.ErrNotFound
	}
	cp := *p
	r.profiles[p.UserID] = &cp
	return nil
}

func (r *fakeUserRepo) UpdateRole(ctx context.Context, userID, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return common.ErrNotFound
	}
	p.Role = role
	return nil
}

type fakeOlympiadRepo struct {
	mu        sync.Mutex
	olympiads map[string]*model.Olympiad
}

func newFakeOlympiadRepo() *fakeOlympiadRepo {
	return &fakeOlympiadRepo{olympiads: map[string]*model.Olympiad{}}
}

func (r *fakeOlympiadRepo) Create(ctx context.Context, tx *sql.Tx, o *model.Olympiad) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.olympiads {
		if existing.Slug == o.Slug {
			return common.ErrConflict
		}
	}
	cp := *o
	r.olympiads[o.ID] = &cp
	return nil
}

func (r *fakeOlympiadRepo) Update(ctx context.Context, tx *sql.Tx, o *model.Olympiad) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.olympiads[o.ID]; !ok {
		return common.ErrNotFound
	}
	cp := *o
	r.olympiads[o.ID] = &cp
	return nil
}

func (r *fakeOlympiadRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.olympiads[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.olympiads, id)
	return nil
}

func (r *fakeOlympiadRepo) FindByID(ctx context.Context, id string) (*model.Olympiad, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.olympiads[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *fakeOlympiadRepo) FindBySlug(ctx context.Context, slug string) (*model.Olympiad, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.olympiads {
		if o.Slug == slug {
			cp := *o
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeOlympiadRepo) List(ctx context.Context, limit, offset int, status model.OlympiadStatus, searchTerm string) ([]model.Olympiad, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Olympiad
	for _, o := range r.olympiads {
		if status != "" && o.Status != status {
			continue
		}
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.After(out[j].StartAt) })
	return out, len(out), nil
}

func (r *fakeOlympiadRepo) UpdateStatus(ctx context.Context, id string, status model.OlympiadStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.olympiads[id]
	if !ok {
		return common.ErrNotFound
	}
	o.Status = status
	return nil
}

func (r *fakeOlympiadRepo) ListStatusFields(ctx context.Context) ([]model.Olympiad, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Olympiad
	for _, o := range r.olympiads {
		out = append(out, *o)
	}
	return out, nil
}

type fakeProblemRepo struct {
	mu       sync.Mutex
	problems map[string]*model.Problem
}

func newFakeProblemRepo() *fakeProblemRepo {
	return &fakeProblemRepo{problems: map[string]*model.Problem{}}
}

func (r *fakeProblemRepo) Create(ctx context.Context, tx *sql.Tx, p *model.Problem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.problems[p.ID] = &cp
	return nil
}

func (r *fakeProblemRepo) Update(ctx context.Context, tx *sql.Tx, p *model.Problem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.problems[p.ID]; !ok {
		return common.ErrNotFound
	}
	cp := *p
	r.problems[p.ID] = &cp
	return nil
}

func (r *fakeProblemRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.problems[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.problems, id)
	return nil
}

func (r *fakeProblemRepo) FindByID(ctx context.Context, id string) (*model.Problem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.problems[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProblemRepo) ListByOlympiad(ctx context.Context, olympiadID string) ([]model.Problem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Problem
	for _, p := range r.problems {
		if p.OlympiadID == olympiadID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

type fakeEnrollmentRepo struct {
	mu          sync.Mutex
	enrollments map[string]*model.Enrollment
	usernames   map[string]string // user ID -> username, for the ListByOlympiad join
}

func newFakeEnrollmentRepo() *fakeEnrollmentRepo {
	return &fakeEnrollmentRepo{
		enrollments: map[string]*model.Enrollment{},
		usernames:   map[string]string{},
	}
}

func (r *fakeEnrollmentRepo) Create(ctx context.Context, tx *sql.Tx, e *model.Enrollment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.enrollments {
		if existing.UserID == e.UserID && existing.OlympiadID == e.OlympiadID {
			return common.ErrConflict
		}
	}
	cp := *e
	cp.RegisteredAt = time.Now()
	r.enrollments[e.ID] = &cp
	return nil
}

func (r *fakeEnrollmentRepo) FindByUserAndOlympiad(ctx context.Context, userID, olympiadID string) (*model.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.enrollments {
		if e.UserID == userID && e.OlympiadID == olympiadID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeEnrollmentRepo) ListByOlympiad(ctx context.Context, olympiadID string) ([]model.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Enrollment
	for _, e := range r.enrollments {
		if e.OlympiadID != olympiadID {
			continue
		}
		cp := *e
		if name, ok := r.usernames[e.UserID]; ok {
			cp.Username = &name
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegisteredAt.Before(out[j].RegisteredAt) })
	return out, nil
}

func (r *fakeEnrollmentRepo) ListByUser(ctx context.Context, userID string) ([]model.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Enrollment
	for _, e := range r.enrollments {
		if e.UserID == userID {
			out = append(out, *e)
		}
	}
	return out, nil
}

type fakeSubmissionRepo struct {
	mu          sync.Mutex
	submissions map[string]*model.Submission
	failCreate  error // when set, Create fails with it
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{submissions: map[string]*model.Submission{}}
}

func (r *fakeSubmissionRepo) Create(ctx context.Context, tx *sql.Tx, sub *model.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return r.failCreate
	}
	cp := *sub
	cp.SubmittedAt = time.Now()
	r.submissions[sub.ID] = &cp
	return nil
}

func (r *fakeSubmissionRepo) FindByID(ctx context.Context, id string) (*model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.submissions[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSubmissionRepo) UpdateReview(ctx context.Context, sub *model.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.submissions[sub.ID]; !ok {
		return common.ErrNotFound
	}
	cp := *sub
	r.submissions[sub.ID] = &cp
	return nil
}

func (r *fakeSubmissionRepo) listWhere(match func(*model.Submission) bool) []model.Submission {
	var out []model.Submission
	for _, s := range r.submissions {
		if match(s) {
			out = append(out, *s)
		}
	}
	return out
}

func (r *fakeSubmissionRepo) ListByOlympiad(ctx context.Context, olympiadID string) ([]model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Fakes key enrollments to olympiads through the enrollment repo in the
	// test setup; here every submission is returned and the caller's setup
	// keeps one olympiad per test.
	return r.listWhere(func(s *model.Submission) bool { return true }), nil
}

func (r *fakeSubmissionRepo) ListByOlympiadDetailed(ctx context.Context, olympiadID string) ([]model.Submission, error) {
	return r.ListByOlympiad(ctx, olympiadID)
}

func (r *fakeSubmissionRepo) ListForUserProblem(ctx context.Context, userID, problemID string) ([]model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listWhere(func(s *model.Submission) bool { return s.ProblemID == problemID }), nil
}

type fakeStorage struct {
	mu       sync.Mutex
	files    map[string][]byte
	failSave error // when set, Save fails with it
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{files: map[string][]byte{}}
}

func (s *fakeStorage) Save(ctx context.Context, key string, data io.Reader) (int64, error) {
	if s.failSave != nil {
		return 0, s.failSave
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[key] = b
	return int64(len(b)), nil
}

func (s *fakeStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.files[key]
	if !ok {
		return nil, errors.New("no such file")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *fakeStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, key)
	return nil
}

func (s *fakeStorage) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[key]
	return ok, nil
}

func (s *fakeStorage) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// Stub database/sql driver so services can open real transactions in tests.
// Nothing executes through it; the fakes above hold all state.

type stubDriver struct{}
type stubConn struct{}
type stubTx struct{}

func (stubDriver) Open(name string) (driver.Conn, error) { return stubConn{}, nil }
func (stubConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("stub driver does not execute statements")
}
func (stubConn) Close() error              { return nil }
func (stubConn) Begin() (driver.Tx, error) { return stubTx{}, nil }
func (stubTx) Commit() error               { return nil }
func (stubTx) Rollback() error             { return nil }

var (
	stubDBOnce sync.Once
	stubDB     *sql.DB
)

func openStubDB() *sql.DB {
	stubDBOnce.Do(func() {
		sql.Register("servicestub", stubDriver{})
		db, err := sql.Open("servicestub", "")
		if err != nil {
			panic(err)
		}
		stubDB = db
	})
	return stubDB
}
