package utils

import (
	"fmt"
	"math/rand"
	"strconv"

	"github.com/mozillazg/go-pinyin"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "勇", "霞", "飞", "玲",
	"超", "华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌",
	"庆", "建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣",
}

func GenerateRandomGivenName() string {
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return name
}

func GenerateRandomChineseName() string {
	return commonSurnames[rand.Intn(len(commonSurnames))] + GenerateRandomGivenName()
}

var roles = []domain.Role{
	domain.RoleViewer,
	domain.RoleScheduler,
	domain.RoleAdmin,
}

func GenerateRandomRole() domain.Role {
	return roles[rand.Intn(len(roles))]
}

var digits = "0123456789"

func GenerateUsernameFromChineseName(chineseName string) string {
	pinyinArray := pinyin.LazyConvert(chineseName, nil)
	username := ""

	for _, pinyin := range pinyinArray {
		length := rand.Intn(len(pinyin)) + 1
		username += pinyin[:length]
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		username += string(digits[rand.Intn(len(digits))])
	}

	return username
}

func GenerateRandomUser(password string, emailDomainName string) (*domain.User, error) {
	fullName := GenerateRandomChineseName()
	username := GenerateUsernameFromChineseName(fullName)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: string(passwordHash),
		FullName:     fullName,
		Email:        username + "@" + emailDomainName,
		Role:         GenerateRandomRole(),
	}

	return user, nil
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*")

func GenerateRandomPassword(length int) string {
	random_password := make([]rune, length)
	for i := range random_password {
		random_password[i] = letters[rand.Intn(len(letters))]
	}
	return string(random_password)
}

func GenerateRandomID(letterLength int, digitLength int) string {
	random_id := make([]rune, letterLength+digitLength)
	for i := range random_id {
		if i < letterLength {
			random_id[i] = letters[rand.Intn(26)]
		} else {
			random_id[i] = rune(digits[rand.Intn(len(digits))])
		}
	}
	return string(random_id)
}

// RandomRosterOptions 描述随机名单的规模
type RandomRosterOptions struct {
	Students          int
	Rooms             int
	Periods           int
	CoursesPerStudent int     // 每个学生选课的数量，不超过 Periods
	SiblingRate       float64 // 学生有兄弟姐妹（需要同组）的概率
}

/**
 * 生成随机名单，用于演示和压测
 * 1. 学生的姓名随机生成，学号为姓名拼音加上序号，保证唯一
 * 2. 每个学生在不同的节次中各选一门课，教室随机
 * 3. 一部分学生与前一个同姓的学生配对，模拟兄弟姐妹
 */
func GenerateRandomRosterRecords(opts RandomRosterOptions) *domain.RosterRecords {
	records := &domain.RosterRecords{
		Enrollments:     make([]domain.Enrollment, 0, opts.Students*opts.CoursesPerStudent),
		Pairings:        make([]domain.Pairing, 0),
		PreferredGroups: make([]domain.PreferredGroup, 0),
		Buckets:         make([]domain.BucketDeclaration, 0),
	}

	periods := make([]int, opts.Periods)
	for i := range periods {
		periods[i] = i + 1
	}
	courses := min(opts.CoursesPerStudent, opts.Periods)

	lastBySurname := make(map[string]string)
	for i := 0; i < opts.Students; i++ {
		surname := commonSurnames[rand.Intn(len(commonSurnames))]
		givenName := GenerateRandomGivenName()
		unitID := GenerateUsernameFromChineseName(surname+givenName) + "-" + strconv.Itoa(i)

		rand.Shuffle(len(periods), func(a, b int) {
			periods[a], periods[b] = periods[b], periods[a]
		})
		for _, period := range periods[:courses] {
			room := rand.Intn(opts.Rooms) + 101
			records.Enrollments = append(records.Enrollments, domain.Enrollment{
				UnitID:       unitID,
				LastName:     surname,
				FirstName:    givenName,
				CourseNumber: fmt.Sprintf("C%d%02d", room, period),
				CourseName:   "课程" + GenerateRandomID(2, 2),
				CourseID:     GenerateRandomID(0, 6),
				Room:         strconv.Itoa(room),
				Period:       strconv.Itoa(period),
			})
		}

		if sibling, exists := lastBySurname[surname]; exists && rand.Float64() < opts.SiblingRate {
			records.Pairings = append(records.Pairings, domain.Pairing{UnitID1: sibling, UnitID2: unitID})
		}
		lastBySurname[surname] = unitID
	}

	return records
}
