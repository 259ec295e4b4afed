package utils

import (
	"math/rand"

	"github.com/google/uuid"
	"github.com/mozillazg/go-pinyin"
	"github.com/workshift-dev/shift-calendar/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "霞", "飞", "玲", "超",
	"华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname + name
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

// GenerateRandomUser 生成一个普通员工账号并随机分配到给定门店中的一部分
func GenerateRandomUser(password string, emailDomainName string, storeIDs []string) (*domain.User, error) {
	fullName := GenerateRandomChineseName()
	username := GenerateUsernameFromChineseName(fullName)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(passwordHash),
		Name:         fullName,
		Email:        username + "@" + emailDomainName,
		Role:         domain.RoleUser,
		StoreIDs:     GenerateRandomSubset(storeIDs),
	}

	return user, nil
}

var shiftTypes = []domain.ShiftType{
	domain.ShiftTypeMorning,
	domain.ShiftTypeEvening,
	domain.ShiftTypeNight,
}

func GenerateRandomShiftType() domain.ShiftType {
	return shiftTypes[rand.Intn(len(shiftTypes))]
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*")

func GenerateRandomPassword(length int) string {
	random_password := make([]rune, length)
	for i := range random_password {
		random_password[i] = letters[rand.Intn(len(letters))]
	}
	return string(random_password)
}

// 用 Fisher-Yates 洗牌算法来生成一个非空随机子集
func GenerateRandomSubset(arr []string) []string {
	arrCopy := append([]string{}, arr...)

	for i := len(arrCopy) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		arrCopy[i], arrCopy[j] = arrCopy[j], arrCopy[i]
	}

	n := rand.Intn(len(arrCopy)) + 1

	return arrCopy[:n]
}
