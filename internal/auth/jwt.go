package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the verified actor attached to a connection or request. It is
// issued by this server (or the authentication collaborator) and wins over
// any self-asserted role/name pair in a request body.
type Identity struct {
	Role      string
	Name      string
	ProjectID uint64 // 0 means unrestricted (operator)
}

func GenerateToken(secret string, identity Identity, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"role":       identity.Role,
		"name":       identity.Name,
		"project_id": identity.ProjectID,
		"exp":        time.Now().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func VerifyToken(secret, tokenString string) (*Identity, error) {
	jwtToken, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !jwtToken.Valid {
		return nil, errors.New("token invalid")
	}

	claims, ok := jwtToken.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("unexpected claims type")
	}

	identity := &Identity{}
	if role, ok := claims["role"].(string); ok {
		identity.Role = role
	}
	if name, ok := claims["name"].(string); ok {
		identity.Name = name
	}
	if projectID, ok := claims["project_id"].(float64); ok {
		identity.ProjectID = uint64(projectID)
	}
	if identity.Role == "" {
		return nil, errors.New("token carries no role")
	}

	return identity, nil
}
