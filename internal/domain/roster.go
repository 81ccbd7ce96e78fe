package domain

import "time"

// Enrollment 表示一条选课记录，即某个学生在某个 (教室, 节次) 上课
type Enrollment struct {
	UnitID       string `json:"unitID" validate:"required"`
	LastName     string `json:"lastName"`
	FirstName    string `json:"firstName"`
	MiddleName   string `json:"middleName"`
	CourseNumber string `json:"courseNumber"`
	CourseName   string `json:"courseName"`
	CourseID     string `json:"courseID"`
	Room         string `json:"room" validate:"required"`
	Period       string `json:"period" validate:"required"`
}

// Pairing 表示两个必须被分到同一组的学生（例如兄弟姐妹）
type Pairing struct {
	UnitID1 string `json:"unitID1" validate:"required"`
	UnitID2 string `json:"unitID2" validate:"required"`
}

// PreferredGroup 表示希望（但不强制）分到同一组的学生
type PreferredGroup struct {
	UnitIDs []string `json:"unitIDs" validate:"required,min=2,dive,required"`
}

// BucketDeclaration 用于声明一个 (教室, 节次)，即使没有任何选课记录
type BucketDeclaration struct {
	Room   string `json:"room" validate:"required"`
	Period string `json:"period" validate:"required"`
}

type RosterRecords struct {
	Enrollments     []Enrollment        `json:"enrollments" validate:"required,min=1,dive"`
	Pairings        []Pairing           `json:"pairings" validate:"dive"`
	PreferredGroups []PreferredGroup    `json:"preferredGroups" validate:"dive"`
	Buckets         []BucketDeclaration `json:"buckets" validate:"dive"`
}

type Roster struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	UnitCount   int32     `json:"unitCount"`
	BucketCount int32     `json:"bucketCount"`
	CreatedBy   int64     `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	Version     int32     `json:"-"`
}
