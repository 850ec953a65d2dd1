// Package auth implements the authentication service flow: a signed,
// time-bounded access ticket is exchanged for a token/sign credential, which
// is then cached in memory and on disk until shortly before it expires.
package auth

import (
	"context"
	"html"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/go-faster/errors"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/arcafe/go-arca-client/arca/cms"
	"github.com/arcafe/go-arca-client/arca/keys"
	"github.com/arcafe/go-arca-client/arca/model"
	"github.com/arcafe/go-arca-client/arca/soap"
	"github.com/arcafe/go-arca-client/arca/tpl"
	"github.com/arcafe/go-arca-client/arca/util"
)

var logger = logrus.WithField("component", "arca.auth")

const (
	// serviceName is the invoicing service the ticket grants access to.
	serviceName = "wsfe"

	// The request window is generous on both sides to tolerate clock skew
	// between us and the remote service.
	generationSkew = 10 * time.Minute
	ticketLifetime = 10 * time.Hour

	timeLayout = "2006-01-02T15:04:05+00:00"
)

type Service interface {
	Authenticate(ctx context.Context) (*model.Credential, error)
}

type service struct {
	caller      soap.Caller
	endpoint    soap.Endpoint
	certPath    string
	keyPath     string
	keyPassword []byte
	clock       clockwork.Clock
}

func NewService(caller soap.Caller, endpoint soap.Endpoint, certPath, keyPath string, keyPassword []byte) Service {
	return &service{
		caller:      caller,
		endpoint:    endpoint,
		certPath:    certPath,
		keyPath:     keyPath,
		keyPassword: keyPassword,
		clock:       clockwork.NewRealClock(),
	}
}

type ticketRequestDTO struct {
	UniqueID       int64
	GenerationTime string
	ExpirationTime string
	Service        string
}

type loginCmsDTO struct {
	Cms []byte
}

// TicketRequest builds the access ticket request document for the given
// instant: unique id from unix seconds, generation 10 minutes in the past,
// expiration 10 hours ahead.
func TicketRequest(now time.Time) ([]byte, error) {
	now = now.UTC()
	return util.MergeTemplate(&tpl.LoginTicketRequest, ticketRequestDTO{
		UniqueID:       now.Unix(),
		GenerationTime: now.Add(-generationSkew).Format(timeLayout),
		ExpirationTime: now.Add(ticketLifetime).Format(timeLayout),
		Service:        serviceName,
	})
}

// Authenticate signs a fresh access ticket and exchanges it for a
// credential. The authentication service has no SOAPAction of its own, the
// header is sent empty.
func (s *service) Authenticate(ctx context.Context) (*model.Credential, error) {

	cert, err := keys.LoadCertificateFromFile(s.certPath)
	if err != nil {
		return nil, err
	}
	signer, err := keys.LoadSignerFromFile(s.keyPath, s.keyPassword)
	if err != nil {
		return nil, err
	}

	ticket, err := TicketRequest(s.clock.Now())
	if err != nil {
		return nil, err
	}

	signed, err := cms.Sign(ticket, cert, signer)
	if err != nil {
		return nil, errors.Wrap(err, "sign access ticket")
	}

	body, err := util.MergeTemplate(&tpl.LoginCms, loginCmsDTO{Cms: signed})
	if err != nil {
		return nil, err
	}

	logger.Infof("authenticating against %s", s.endpoint.Host)

	raw, err := s.caller.Call(ctx, s.endpoint, "", string(body))
	if err != nil {
		return nil, err
	}

	doc, err := soap.Parse(raw)
	if err != nil {
		return nil, err
	}
	if err := soap.CheckFault(doc); err != nil {
		return nil, err
	}

	cred, err := parseLoginResponse(doc, raw)
	if err != nil {
		return nil, err
	}

	logger.Infof("credential obtained, expires %s", cred.Expiration)
	return cred, nil
}

// parseLoginResponse extracts the token/sign/expiration triple. The service
// nests it as an escaped XML document inside loginCmsReturn; some
// deployments skip the escaping, so the outer tree is searched as a
// fallback.
func parseLoginResponse(doc *etree.Document, raw string) (*model.Credential, error) {
	root := doc.Root()

	var token, sign, expiration string

	if inner, ok := soap.FindField(root, "loginCmsReturn"); ok && inner != "" {
		innerDoc := etree.NewDocument()
		if err := innerDoc.ReadFromString(html.UnescapeString(inner)); err == nil && innerDoc.Root() != nil {
			token, _ = soap.FindField(innerDoc.Root(), "token")
			sign, _ = soap.FindField(innerDoc.Root(), "sign")
			expiration, _ = soap.FindField(innerDoc.Root(), "expirationTime")
		} else if err != nil {
			logger.Warnf("could not parse inner login ticket: %v", err)
		}
	}

	if token == "" {
		token, _ = soap.FindField(root, "token")
		sign, _ = soap.FindField(root, "sign")
		expiration, _ = soap.FindField(root, "expirationTime")
	}

	if token == "" || sign == "" {
		snippet := raw
		if len(snippet) > 600 {
			snippet = snippet[:600]
		}
		return nil, errors.Errorf("token/sign not found in login response: %s", snippet)
	}

	exp, err := parseExpiration(expiration)
	if err != nil {
		return nil, err
	}

	return &model.Credential{Token: token, Sign: sign, Expiration: exp}, nil
}

func parseExpiration(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("login response carries no expiration time")
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "invalid expiration time %q", s)
	}
	return t, nil
}

// ErrActiveTicket is returned when the service reports an access ticket that
// is still active while none is cached locally. This happens when the
// process restarted before the previous ticket expired and no disk cache
// survived. It self-resolves once the remote ticket expires, about 12 hours
// after it was issued; wait and retry.
var ErrActiveTicket = errors.New(
	"the service reports an active access ticket that is not in the local cache " +
		"(the process likely restarted before the previous ticket expired); " +
		"this resolves itself once the remote ticket expires (~12h after issuance), wait and retry")

// isActiveTicketFault recognizes the already-active-ticket fault. The match
// is on the fault code and on the literal fragment the service puts in the
// message ("El CEE ya posee un TA valido para el acceso al WSN solicitado").
// TODO: confirm whether production ever localizes this message; the code
// alone may be enough once verified.
func isActiveTicketFault(err error) bool {
	var fault *soap.Fault
	if !errors.As(err, &fault) {
		return false
	}
	return strings.Contains(fault.Code, "alreadyAuthenticated") ||
		strings.Contains(fault.Message, "TA valido")
}
