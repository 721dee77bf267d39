// Package docstore implements store.Store on MongoDB. Registry and roster
// replacement run in a multi-document transaction, so the server must be a
// replica set member.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"attendance_app_backend/models"
	"attendance_app_backend/store"
)

const registryID = "registry"

type Store struct {
	client     *mongo.Client
	db         *mongo.Database
	meta       *mongo.Collection
	courses    *mongo.Collection
	students   *mongo.Collection
	attendance *mongo.Collection
}

func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("error connecting to mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("error pinging mongo: %w", err)
	}
	return New(client, client.Database(database)), nil
}

func New(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{
		client:     client,
		db:         db,
		meta:       db.Collection("registry_meta"),
		courses:    db.Collection("courses"),
		students:   db.Collection("students"),
		attendance: db.Collection("attendance"),
	}
}

// EnsureIndexes creates the unique keys the store relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.attendance.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "student_id", Value: 1}, {Key: "course_id", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "date", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("error creating attendance indexes: %w", err)
	}
	_, err = s.courses.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "slot", Value: 1}, {Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("error creating course indexes: %w", err)
	}
	_, err = s.students.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "position", Value: 1}}})
	if err != nil {
		return fmt.Errorf("error creating student indexes: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx, readpref.Primary()) }

func (s *Store) Close(ctx context.Context) error { return s.client.Disconnect(ctx) }

func mapError(collection string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return &store.DuplicateKeyError{Table: collection, Err: err}
	}
	return err
}

func (s *Store) RegistryInfo(ctx context.Context) (models.RegistryInfo, error) {
	var info models.RegistryInfo
	err := s.meta.FindOne(ctx, bson.M{"_id": registryID}).Decode(&info)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.RegistryInfo{}, nil
	}
	if err != nil {
		return models.RegistryInfo{}, fmt.Errorf("error fetching registry info: %w", err)
	}
	return info, nil
}

func (s *Store) Courses(ctx context.Context) ([]models.Course, error) {
	cur, err := s.courses.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("error fetching courses: %w", err)
	}
	var courses []models.Course
	if err := cur.All(ctx, &courses); err != nil {
		return nil, fmt.Errorf("error decoding courses: %w", err)
	}
	return courses, nil
}

func (s *Store) ReplaceRegistry(ctx context.Context, courses []models.Course, fingerprint string, roster []models.Student) (int, error) {
	var info models.RegistryInfo
	err := s.transaction(ctx, func(sc mongo.SessionContext) error {
		if _, err := s.students.DeleteMany(sc, bson.M{}); err != nil {
			return fmt.Errorf("error clearing students: %w", err)
		}
		if _, err := s.courses.DeleteMany(sc, bson.M{}); err != nil {
			return fmt.Errorf("error clearing courses: %w", err)
		}
		if len(courses) > 0 {
			docs := make([]any, len(courses))
			for i, c := range courses {
				docs[i] = c
			}
			if _, err := s.courses.InsertMany(sc, docs); err != nil {
				return fmt.Errorf("error seeding courses: %w", mapError("courses", err))
			}
		}
		if err := s.insertStudents(sc, roster); err != nil {
			return err
		}
		return s.meta.FindOneAndUpdate(sc,
			bson.M{"_id": registryID},
			bson.M{
				"$inc": bson.M{"version": 1},
				"$set": bson.M{"fingerprint": fingerprint, "updated_at": time.Now().UTC()},
			},
			options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
		).Decode(&info)
	})
	if err != nil {
		return 0, err
	}
	return info.Version, nil
}

func (s *Store) ReplaceRoster(ctx context.Context, roster []models.Student) error {
	return s.transaction(ctx, func(sc mongo.SessionContext) error {
		if _, err := s.students.DeleteMany(sc, bson.M{}); err != nil {
			return fmt.Errorf("error clearing students: %w", err)
		}
		return s.insertStudents(sc, roster)
	})
}

func (s *Store) insertStudents(ctx context.Context, roster []models.Student) error {
	if len(roster) == 0 {
		return nil
	}
	docs := make([]any, len(roster))
	for i, st := range roster {
		docs[i] = st
	}
	if _, err := s.students.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("error inserting students: %w", mapError("students", err))
	}
	return nil
}

func (s *Store) transaction(ctx context.Context, fn func(mongo.SessionContext) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("error starting session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	return err
}

func (s *Store) Students(ctx context.Context) ([]models.Student, error) {
	cur, err := s.students.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "position", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("error fetching students: %w", err)
	}
	students := []models.Student{}
	if err := cur.All(ctx, &students); err != nil {
		return nil, fmt.Errorf("error decoding students: %w", err)
	}
	return students, nil
}

func (s *Store) Student(ctx context.Context, id int64) (models.Student, error) {
	var st models.Student
	err := s.students.FindOne(ctx, bson.M{"_id": id}).Decode(&st)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Student{}, store.ErrNotFound
	}
	if err != nil {
		return models.Student{}, fmt.Errorf("error fetching student: %w", err)
	}
	return st, nil
}

func attendanceKey(studentID int64, courseID int, date string) bson.M {
	return bson.M{"student_id": studentID, "course_id": courseID, "date": date}
}

// UpsertAttendance updates the record for the key in place. Two concurrent
// first writes can race on the unique index; the loser retries as an update.
func (s *Store) UpsertAttendance(ctx context.Context, rec models.AttendanceRecord) (models.AttendanceRecord, error) {
	filter := attendanceKey(rec.StudentID, rec.CourseID, rec.Date)
	update := bson.M{"$set": bson.M{"present": rec.Present, "updated_at": rec.UpdatedAt.UTC()}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var saved models.AttendanceRecord
	err := s.attendance.FindOneAndUpdate(ctx, filter, update, opts).Decode(&saved)
	if mongo.IsDuplicateKeyError(err) {
		err = s.attendance.FindOneAndUpdate(ctx, filter, update, opts).Decode(&saved)
	}
	if err != nil {
		return models.AttendanceRecord{}, fmt.Errorf("error saving attendance: %w", mapError("attendance", err))
	}
	return saved, nil
}

func (s *Store) Attendance(ctx context.Context, studentID int64, courseID int, date string) (models.AttendanceRecord, error) {
	var rec models.AttendanceRecord
	err := s.attendance.FindOne(ctx, attendanceKey(studentID, courseID, date)).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.AttendanceRecord{}, store.ErrNotFound
	}
	if err != nil {
		return models.AttendanceRecord{}, fmt.Errorf("error fetching attendance: %w", err)
	}
	return rec, nil
}

func (s *Store) AttendanceForDate(ctx context.Context, date string) ([]models.AttendanceRecord, error) {
	return s.AttendanceBetween(ctx, date, date)
}

func (s *Store) AttendanceBetween(ctx context.Context, from, to string) ([]models.AttendanceRecord, error) {
	cur, err := s.attendance.Find(ctx,
		bson.M{"date": bson.M{"$gte": from, "$lte": to}},
		options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "student_id", Value: 1}, {Key: "course_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("error fetching attendance: %w", err)
	}
	var recs []models.AttendanceRecord
	if err := cur.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("error decoding attendance: %w", err)
	}
	return recs, nil
}
